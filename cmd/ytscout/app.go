package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/aatumaykin/ytscout/internal/config"
	"github.com/aatumaykin/ytscout/internal/jobstore"
	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/output"
	"github.com/aatumaykin/ytscout/internal/scheduler"
	"github.com/aatumaykin/ytscout/internal/scraper"
	"github.com/aatumaykin/ytscout/internal/youtube"
)

// loadConfig resolves the effective configuration: defaults when no --config
// was given. A .env file in the working directory is applied first so the
// API key can live there.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", e)
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	// Stray slog output from libraries follows the configured handler too.
	logger.SetDefault(log)
	return log, nil
}

// buildScheduler wires store, youtube client, output writer and scraper into
// a Scheduler. The caller owns Start/Stop.
func buildScheduler(cfg *config.Config, store *jobstore.Store, log *logger.Logger, metrics *scheduler.Metrics) (*scheduler.Scheduler, error) {
	apiKey := os.Getenv(cfg.APIKeyEnvVar)
	if apiKey == "" {
		log.Warn("no API key set, running in scrape-only mode",
			logger.Field{Key: "env_var", Value: cfg.APIKeyEnvVar})
	}

	client := youtube.New(youtube.Config{
		APIKey:       apiKey,
		MaxResults:   cfg.MaxResults,
		CommentCount: cfg.CommentCount,
		RatePause:    cfg.RateLimitPause.Std(),
	}, log.With(logger.Field{Key: "component", Value: "youtube"}))

	writer, err := output.NewWriter(cfg.OutputDirectory, output.Format(cfg.OutputFormat))
	if err != nil {
		return nil, err
	}

	fetcher := scraper.New(client, writer, cfg.RateLimitPause.Std(),
		log.With(logger.Field{Key: "component", Value: "scraper"}))

	return scheduler.New(scheduler.Config{
		TickInterval:  cfg.Scheduler.TickInterval.Std(),
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		MisfireGrace:  cfg.Scheduler.MisfireGrace.Std(),
		FireTimeout:   cfg.Scheduler.FireTimeout.Std(),
		Timezone:      cfg.Scheduler.Timezone,
	}, store, fetcher, log, metrics)
}

// setup is the common preamble of every job command: config, logger, store.
func setup() (*config.Config, *logger.Logger, *jobstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := jobstore.Open(cfg.Scheduler.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, store, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
