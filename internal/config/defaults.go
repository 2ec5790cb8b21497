package config

import "time"

func applyDefaults(cfg *Config) {
	if cfg.APIKeyEnvVar == "" {
		cfg.APIKeyEnvVar = "YOUTUBE_API_KEY"
	}
	if cfg.OutputDirectory == "" {
		cfg.OutputDirectory = "scraped_data"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.CommentCount <= 0 {
		cfg.CommentCount = 100
	}
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = Duration(time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Scheduler.DBPath == "" {
		cfg.Scheduler.DBPath = "data/jobs.db"
	}
	if cfg.Scheduler.TickInterval <= 0 {
		cfg.Scheduler.TickInterval = Duration(time.Second)
	}
	if cfg.Scheduler.MaxConcurrent <= 0 {
		cfg.Scheduler.MaxConcurrent = 4
	}
	if cfg.Scheduler.MisfireGrace <= 0 {
		cfg.Scheduler.MisfireGrace = Duration(time.Hour)
	}
	if cfg.Scheduler.FireTimeout <= 0 {
		cfg.Scheduler.FireTimeout = Duration(10 * time.Minute)
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}
