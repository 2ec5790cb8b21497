// Package config loads the application configuration from a YAML or TOML
// file, fills in defaults and validates the result.
package config

// Config is the root configuration.
type Config struct {
	APIKeyEnvVar    string   `yaml:"api_key_env_var" toml:"api_key_env_var"`
	OutputDirectory string   `yaml:"output_directory" toml:"output_directory"`
	OutputFormat    string   `yaml:"output_format" toml:"output_format"`
	MaxResults      int      `yaml:"max_results" toml:"max_results"`
	CommentCount    int      `yaml:"comment_count" toml:"comment_count"`
	RateLimitPause  Duration `yaml:"rate_limit_pause" toml:"rate_limit_pause"`

	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler" toml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`

	ScheduledJobs []JobEntry `yaml:"scheduled_jobs" toml:"scheduled_jobs"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// SchedulerConfig controls the dispatch loop and the job database.
type SchedulerConfig struct {
	DBPath        string   `yaml:"db_path" toml:"db_path"`
	TickInterval  Duration `yaml:"tick_interval" toml:"tick_interval"`
	MaxConcurrent int      `yaml:"max_concurrent" toml:"max_concurrent"`
	MisfireGrace  Duration `yaml:"misfire_grace" toml:"misfire_grace"`
	FireTimeout   Duration `yaml:"fire_timeout" toml:"fire_timeout"`
	Timezone      string   `yaml:"timezone" toml:"timezone"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// JobEntry declares one scheduled job in the config file. Exactly one of the
// target fields must be set; it determines the operation.
type JobEntry struct {
	ID              string `yaml:"id" toml:"id"`
	ChannelID       string `yaml:"channel_id" toml:"channel_id"`
	VideoID         string `yaml:"video_id" toml:"video_id"`
	PlaylistID      string `yaml:"playlist_id" toml:"playlist_id"`
	Query           string `yaml:"query" toml:"query"`
	IncludeComments *bool  `yaml:"include_comments" toml:"include_comments"`

	ScheduleType string         `yaml:"schedule_type" toml:"schedule_type"`
	Interval     *IntervalEntry `yaml:"interval" toml:"interval"`
	Cron         *CronEntry     `yaml:"cron" toml:"cron"`
}

// IntervalEntry is the interval schedule of a JobEntry.
type IntervalEntry struct {
	Unit  string `yaml:"unit" toml:"unit"`
	Value int    `yaml:"value" toml:"value"`
}

// CronEntry is the cron schedule of a JobEntry.
type CronEntry struct {
	Minute    string `yaml:"minute" toml:"minute"`
	Hour      string `yaml:"hour" toml:"hour"`
	Day       string `yaml:"day" toml:"day"`
	Month     string `yaml:"month" toml:"month"`
	DayOfWeek string `yaml:"day_of_week" toml:"day_of_week"`
}
