package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobenricher/internal/ai"
	"github.com/amishk599/jobenricher/internal/config"
	"github.com/amishk599/jobenricher/internal/enricher"
	"github.com/amishk599/jobenricher/internal/fetch"
	"github.com/amishk599/jobenricher/internal/filter"
	"github.com/amishk599/jobenricher/internal/model"
	"github.com/amishk599/jobenricher/internal/notifier"
	"github.com/amishk599/jobenricher/internal/ratelimit"
	"github.com/amishk599/jobenricher/internal/retry"
	"github.com/amishk599/jobenricher/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobenricher",
	Short: "Enrich scraped job postings with a local LLM",
	Long:  "jobenricher reads pending jobs from the shared SQLite database, fetches each posting, asks a language model for visa, location and summary data, and writes the result back.",
	// Default to `start` so that `jobenricher` with no args runs the worker.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBENRICHER_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBENRICHER_CONFIG env var > "./config.yaml".
// A missing ./config.yaml falls back to built-in defaults; a missing explicit
// path is an error.
func loadConfig(path string) (*config.Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	explicit := true
	if path == "" {
		if env := os.Getenv("JOBENRICHER_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
			explicit = false
		}
	}

	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func mustLoad(logger *slog.Logger) *config.Config {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func openStore(cfg *config.Config, logger *slog.Logger) *store.SQLiteStore {
	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path, store.Options{
		BusyTimeout:              cfg.Store.BusyTimeout,
		Schema:                   cfg.Schema,
		KeepDescriptionOnFailure: cfg.Store.KeepDescriptionOnFailure,
	})
	if err != nil {
		logger.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	return sqlStore
}

// acquireLock takes the single-writer lock next to the database. Only one
// enrichment process may write at a time.
func acquireLock(cfg *config.Config, logger *slog.Logger) *flock.Flock {
	lock := flock.New(cfg.Store.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		logger.Error("failed to acquire lock", "path", lock.Path(), "error", err)
		os.Exit(1)
	}
	if !ok {
		logger.Error("another enrichment process is already running", "lock", lock.Path())
		os.Exit(1)
	}
	return lock
}

func criteriaFrom(cfg *config.Config) filter.Criteria {
	return filter.Criteria{
		HideCitizenship:   cfg.Filters.HideCitizenship,
		HideNoSponsorship: cfg.Filters.HideNoSponsorship,
		Locations:         cfg.Filters.Locations,
		ExcludeLocations:  cfg.Filters.ExcludeLocations,
		WorkTypes:         cfg.Filters.WorkTypes,
	}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	jobFilter := filter.NewEnrichedJobFilter(criteriaFrom(cfg))
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, jobFilter, httpClient, logger)
	default:
		return notifier.NewLogNotifier(jobFilter, logger)
	}
}

func setupFetcher(cfg *config.Config, logger *slog.Logger) model.PageFetcher {
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	httpFetcher := fetch.NewHTTPFetcher(httpClient, cfg.Fetch.UserAgent, cfg.Fetch.MaxChars, cfg.Fetch.MaxBodyBytes)

	var f model.PageFetcher
	switch cfg.Fetch.Mode {
	case "browser":
		f = fetch.NewBrowserFetcher(cfg.Fetch.Timeout, cfg.Fetch.BrowserWait, cfg.Fetch.UserAgent, cfg.Fetch.MaxChars, logger)
	case "auto":
		browser := fetch.NewBrowserFetcher(cfg.Fetch.Timeout, cfg.Fetch.BrowserWait, cfg.Fetch.UserAgent, cfg.Fetch.MaxChars, logger)
		f = fetch.NewAutoFetcher(httpFetcher, browser, cfg.Fetch.MinContentChars, logger)
	default:
		f = httpFetcher
	}

	if cfg.Fetch.HostRate > 0 {
		limiter := ratelimit.NewHostRateLimiter(cfg.Fetch.HostRate, cfg.Fetch.HostBurst)
		f = ratelimit.NewRateLimitedFetcher(f, limiter)
		logger.Debug("per-host rate limit enabled", "rate", cfg.Fetch.HostRate, "burst", cfg.Fetch.HostBurst)
	}
	return f
}

func setupAnalyzer(cfg *config.Config, logger *slog.Logger) enricher.Analyzer {
	httpClient := &http.Client{Timeout: cfg.AI.Timeout}

	var provider ai.LLMProvider
	switch cfg.AI.Provider {
	case "openai":
		provider = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Temperature, cfg.Schema, httpClient)
	default:
		provider = ai.NewOllamaProvider(cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.Temperature, httpClient)
	}

	logger.Info("model backend configured",
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"base_url", cfg.AI.BaseURL,
		"schema", cfg.Schema,
	)
	return ai.NewLLMJobAnalyzer(provider, cfg.Schema, logger)
}

// buildEnricher wires fetch → analyze → persist. Writes go through the retry
// decorator so a briefly locked database does not lose a result.
func buildEnricher(cfg *config.Config, jobStore model.JobStore, logger *slog.Logger) *enricher.Enricher {
	writer := retry.NewRetryStore(jobStore, store.IsTransient, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger)
	return enricher.NewEnricher(setupFetcher(cfg, logger), setupAnalyzer(cfg, logger), writer, logger)
}

func logConfig(cfg *config.Config, logger *slog.Logger) {
	logger.Info("config loaded",
		"db", cfg.Store.Path,
		"schema", cfg.Schema,
		"batch_size", cfg.Loop.BatchSize,
		"job_delay", cfg.Loop.JobDelay.String(),
		"idle_interval", cfg.Loop.IdleInterval.String(),
		"fetch_mode", cfg.Fetch.Mode,
	)
}

func notifierClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
