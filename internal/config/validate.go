package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errs []error

	switch strings.ToLower(c.OutputFormat) {
	case "json", "csv":
	default:
		errs = append(errs, fmt.Errorf("invalid output_format: %s (expected: json, csv)", c.OutputFormat))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid scheduler.timezone: %s", c.Scheduler.Timezone))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}

	for i, job := range c.ScheduledJobs {
		if err := job.validate(); err != nil {
			errs = append(errs, fmt.Errorf("scheduled_jobs[%d]: %w", i, err))
		}
	}

	return errs
}

// Target returns the job's target value and which kind it is.
func (e JobEntry) Target() (kind, target string) {
	switch {
	case e.ChannelID != "":
		return "channel", e.ChannelID
	case e.VideoID != "":
		return "video", e.VideoID
	case e.PlaylistID != "":
		return "playlist", e.PlaylistID
	case e.Query != "":
		return "search", e.Query
	default:
		return "", ""
	}
}

func (e JobEntry) validate() error {
	targets := 0
	for _, v := range []string{e.ChannelID, e.VideoID, e.PlaylistID, e.Query} {
		if v != "" {
			targets++
		}
	}
	if targets == 0 {
		return fmt.Errorf("one of channel_id, video_id, playlist_id or query is required")
	}
	if targets > 1 {
		return fmt.Errorf("only one of channel_id, video_id, playlist_id or query may be set")
	}

	switch e.ScheduleType {
	case "", "interval", "cron":
	default:
		return fmt.Errorf("invalid schedule_type: %s (expected: interval, cron)", e.ScheduleType)
	}
	if e.ScheduleType == "interval" && e.Interval == nil {
		return fmt.Errorf("interval section is required when schedule_type is 'interval'")
	}
	if e.ScheduleType == "cron" && e.Cron == nil {
		return fmt.Errorf("cron section is required when schedule_type is 'cron'")
	}
	return nil
}
