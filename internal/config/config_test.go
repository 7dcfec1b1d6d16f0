package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobenricher/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
schema: extended
store:
  path: /tmp/jobs.db
loop:
  batch_size: 5
  job_delay: 1s
  idle_interval: 1m
fetch:
  mode: auto
  max_chars: 4000
ai:
  provider: ollama
  model: mistral
  temperature: 0.2
filters:
  hide_citizenship: true
  locations:
    - Remote
  work_types: [remote, hybrid]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schema != model.SchemaExtended {
		t.Errorf("Schema = %q, want extended", cfg.Schema)
	}
	if cfg.Store.Path != "/tmp/jobs.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Loop.BatchSize != 5 || cfg.Loop.JobDelay != time.Second || cfg.Loop.IdleInterval != time.Minute {
		t.Errorf("Loop = %+v", cfg.Loop)
	}
	if cfg.Fetch.Mode != "auto" || cfg.Fetch.MaxChars != 4000 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.AI.Model != "mistral" || cfg.AI.Temperature != 0.2 || cfg.AI.BaseURL != DefaultOllamaBaseURL {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if !cfg.Filters.HideCitizenship || len(cfg.Filters.Locations) != 1 || len(cfg.Filters.WorkTypes) != 2 {
		t.Errorf("Filters = %+v", cfg.Filters)
	}
	// Untouched keys keep their defaults.
	if cfg.Fetch.Timeout != 15*time.Second || cfg.AI.Timeout != 120*time.Second {
		t.Errorf("defaults not applied: fetch.timeout=%v ai.timeout=%v", cfg.Fetch.Timeout, cfg.AI.Timeout)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Schema != model.SchemaBasic {
		t.Errorf("Schema = %q, want basic", cfg.Schema)
	}
	if cfg.Store.Path != "jobs.db" {
		t.Errorf("Store.Path = %q, want jobs.db", cfg.Store.Path)
	}
	if cfg.Loop.BatchSize != 10 || cfg.Loop.JobDelay != 3*time.Second || cfg.Loop.IdleInterval != 30*time.Second {
		t.Errorf("Loop = %+v", cfg.Loop)
	}
	if cfg.Fetch.Timeout != 15*time.Second || cfg.Fetch.MaxChars != 3000 {
		t.Errorf("Fetch = %+v", cfg.Fetch)
	}
	if cfg.AI.Provider != "ollama" || cfg.AI.Model != "llama3.2" || cfg.AI.Temperature != 0.1 || cfg.AI.BaseURL != "http://localhost:11434" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.Store.KeepDescriptionOnFailure {
		t.Error("KeepDescriptionOnFailure should default to false")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "loop: [broken")

	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	path := writeConfig(t, `
ai:
  provider: openai
  model: gpt-4o-mini
  api_key: ${TEST_OPENAI_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.AI.APIKey)
	}
	if cfg.AI.BaseURL != DefaultOpenAIBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.AI.BaseURL, DefaultOpenAIBaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad schema", "schema: full", "schema"},
		{"zero batch", "loop:\n  batch_size: 0", "loop.batch_size"},
		{"bad duration", "loop:\n  job_delay: soon", "loop.job_delay"},
		{"zero idle", "loop:\n  idle_interval: 0s", "loop.idle_interval"},
		{"bad fetch mode", "fetch:\n  mode: curl", "fetch.mode"},
		{"bad provider", "ai:\n  provider: claude", "ai.provider"},
		{"openai without key", "ai:\n  provider: openai\n  model: gpt-4o-mini", "ai.api_key"},
		{"slack without webhook", "notification:\n  type: slack", "webhook_url"},
		{"slack bad webhook", "notification:\n  type: slack\n  webhook_url: https://example.com/hook", "hooks.slack.com"},
		{"bad work type", "filters:\n  work_types: [office]", "filters.work_types"},
		{"min content above max", "fetch:\n  max_chars: 100\n  min_content_chars: 500", "min_content_chars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load: expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestFieldPath(t *testing.T) {
	tests := map[string]string{
		"Config.Loop.BatchSize":        "loop.batch_size",
		"Config.AI.APIKey":             "ai.api_key",
		"Config.AI.BaseURL":            "ai.base_url",
		"Config.Filters.WorkTypes[0]":  "filters.work_types[0]",
		"Config.Fetch.MinContentChars": "fetch.min_content_chars",
	}
	for in, want := range tests {
		if got := fieldPath(in); got != want {
			t.Errorf("fieldPath(%q) = %q, want %q", in, got, want)
		}
	}
}
