package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobenricher/internal/model"
)

// Config is the root configuration for the enrichment worker.
type Config struct {
	Schema       model.Schema `validate:"oneof=basic extended"`
	Store        StoreConfig
	Loop         LoopConfig
	Fetch        FetchConfig
	AI           AIConfig
	Retry        RetryConfig
	Notification NotificationConfig
	Filters      FilterConfig
}

// StoreConfig points at the shared jobs database.
type StoreConfig struct {
	Path                     string        `validate:"required"`
	BusyTimeout              time.Duration `validate:"gt=0s"`
	KeepDescriptionOnFailure bool
}

// LoopConfig controls batch size and pacing of the polling loop.
type LoopConfig struct {
	BatchSize    int           `validate:"min=1,max=1000"`
	JobDelay     time.Duration `validate:"gte=0s"`
	IdleInterval time.Duration `validate:"gt=0s"`
}

// FetchConfig controls how posting pages are retrieved and reduced.
type FetchConfig struct {
	Mode            string        `validate:"oneof=http browser auto"`
	Timeout         time.Duration `validate:"gt=0s"`
	UserAgent       string        `validate:"required"`
	MaxChars        int           `validate:"min=1"`
	MaxBodyBytes    int64         `validate:"min=1"`
	MinContentChars int           `validate:"min=0"`
	HostRate        float64       `validate:"gte=0"` // requests per second per host; 0 disables
	HostBurst       int           `validate:"min=1"`
	BrowserWait     time.Duration `validate:"gte=0s"`
}

// AIConfig selects the model backend.
type AIConfig struct {
	Provider    string        `validate:"oneof=ollama openai"`
	BaseURL     string        `validate:"omitempty,url"`
	Model       string        `validate:"required"`
	APIKey      string        // expanded from env var by Load
	Temperature float64       `validate:"gte=0,lte=2"`
	Timeout     time.Duration `validate:"gt=0s"`
}

// RetryConfig controls retries of transient store write failures.
type RetryConfig struct {
	MaxRetries int           `validate:"min=0,max=10"`
	BaseDelay  time.Duration `validate:"gt=0s"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type" validate:"oneof=log slack"`
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// FilterConfig holds the visa and location criteria used to highlight jobs.
type FilterConfig struct {
	HideCitizenship   bool     `yaml:"hide_citizenship"`
	HideNoSponsorship bool     `yaml:"hide_no_sponsorship"`
	Locations         []string `yaml:"locations"`
	ExcludeLocations  []string `yaml:"exclude_locations"`
	WorkTypes         []string `yaml:"work_types" validate:"dive,oneof=onsite remote hybrid unknown"`
}

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Schema       string             `yaml:"schema"`
	Store        rawStoreConfig     `yaml:"store"`
	Loop         rawLoopConfig      `yaml:"loop"`
	Fetch        rawFetchConfig     `yaml:"fetch"`
	AI           rawAIConfig        `yaml:"ai"`
	Retry        rawRetryConfig     `yaml:"retry"`
	Notification NotificationConfig `yaml:"notification"`
	Filters      FilterConfig       `yaml:"filters"`
}

type rawStoreConfig struct {
	Path                     string `yaml:"path"`
	BusyTimeout              string `yaml:"busy_timeout"`
	KeepDescriptionOnFailure bool   `yaml:"keep_description_on_failure"`
}

type rawLoopConfig struct {
	BatchSize    int    `yaml:"batch_size"`
	JobDelay     string `yaml:"job_delay"`
	IdleInterval string `yaml:"idle_interval"`
}

type rawFetchConfig struct {
	Mode            string  `yaml:"mode"`
	Timeout         string  `yaml:"timeout"`
	UserAgent       string  `yaml:"user_agent"`
	MaxChars        int     `yaml:"max_chars"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes"`
	MinContentChars int     `yaml:"min_content_chars"`
	HostRate        float64 `yaml:"host_rate"`
	HostBurst       int     `yaml:"host_burst"`
	BrowserWait     string  `yaml:"browser_wait"`
}

type rawAIConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

type rawRetryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

func defaultRaw() rawConfig {
	return rawConfig{
		Schema: string(model.SchemaBasic),
		Store: rawStoreConfig{
			Path:        "jobs.db",
			BusyTimeout: "5s",
		},
		Loop: rawLoopConfig{
			BatchSize:    10,
			JobDelay:     "3s",
			IdleInterval: "30s",
		},
		Fetch: rawFetchConfig{
			Mode:            "http",
			Timeout:         "15s",
			UserAgent:       DefaultUserAgent,
			MaxChars:        3000,
			MaxBodyBytes:    5 << 20,
			MinContentChars: 200,
			HostRate:        0.5,
			HostBurst:       1,
			BrowserWait:     "2s",
		},
		AI: rawAIConfig{
			Provider:    "ollama",
			Model:       "llama3.2",
			Temperature: 0.1,
			Timeout:     "120s",
		},
		Retry: rawRetryConfig{
			MaxRetries: 3,
			BaseDelay:  "500ms",
		},
		Notification: NotificationConfig{Type: "log"},
	}
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	cfg, err := build(defaultRaw())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in config: %v", err))
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	raw := defaultRaw()
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	var durs durations
	cfg := &Config{
		Schema: model.Schema(raw.Schema),
		Store: StoreConfig{
			Path:                     raw.Store.Path,
			BusyTimeout:              durs.parse("store.busy_timeout", raw.Store.BusyTimeout),
			KeepDescriptionOnFailure: raw.Store.KeepDescriptionOnFailure,
		},
		Loop: LoopConfig{
			BatchSize:    raw.Loop.BatchSize,
			JobDelay:     durs.parse("loop.job_delay", raw.Loop.JobDelay),
			IdleInterval: durs.parse("loop.idle_interval", raw.Loop.IdleInterval),
		},
		Fetch: FetchConfig{
			Mode:            raw.Fetch.Mode,
			Timeout:         durs.parse("fetch.timeout", raw.Fetch.Timeout),
			UserAgent:       raw.Fetch.UserAgent,
			MaxChars:        raw.Fetch.MaxChars,
			MaxBodyBytes:    raw.Fetch.MaxBodyBytes,
			MinContentChars: raw.Fetch.MinContentChars,
			HostRate:        raw.Fetch.HostRate,
			HostBurst:       raw.Fetch.HostBurst,
			BrowserWait:     durs.parse("fetch.browser_wait", raw.Fetch.BrowserWait),
		},
		AI: AIConfig{
			Provider:    raw.AI.Provider,
			BaseURL:     raw.AI.BaseURL,
			Model:       raw.AI.Model,
			APIKey:      raw.AI.APIKey,
			Temperature: raw.AI.Temperature,
			Timeout:     durs.parse("ai.timeout", raw.AI.Timeout),
		},
		Retry: RetryConfig{
			MaxRetries: raw.Retry.MaxRetries,
			BaseDelay:  durs.parse("retry.base_delay", raw.Retry.BaseDelay),
		},
		Notification: raw.Notification,
		Filters:      raw.Filters,
	}
	if durs.err != nil {
		return nil, durs.err
	}

	if cfg.AI.BaseURL == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.BaseURL = DefaultOpenAIBaseURL
		default:
			cfg.AI.BaseURL = DefaultOllamaBaseURL
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durations parses a series of duration fields, keeping the first error.
type durations struct {
	err error
}

func (d *durations) parse(key, value string) time.Duration {
	if d.err != nil {
		return 0
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", key, value, err)
		return 0
	}
	return v
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (got %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.AI.Provider == "openai" && cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.provider is \"openai\"")
	}

	if cfg.Fetch.MinContentChars > cfg.Fetch.MaxChars {
		return fmt.Errorf("fetch.min_content_chars (%d) cannot exceed fetch.max_chars (%d)", cfg.Fetch.MinContentChars, cfg.Fetch.MaxChars)
	}

	return nil
}

// fieldPath turns "Config.Loop.BatchSize" into "loop.batch_size".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			// Break before an upper-case letter that starts a new word: "BatchSize" → "batch_size", "APIKey" → "api_key".
			if i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z' || (i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z')) {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
