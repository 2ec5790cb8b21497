package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/ytscout/internal/config"
	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/scheduler"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler until interrupted",
	Long: `Start the dispatch loop. Jobs declared in the config file are seeded
into the job database first; jobs added with the jobs subcommands while the
scheduler runs are picked up on the next tick.`,
	Run: runStart,
}

func runStart(cmd *cobra.Command, args []string) {
	cfg, log, store, err := setup()
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	var metrics *scheduler.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics = scheduler.InitMetrics("ytscout", nil)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:     cfg.Metrics.Addr,
			Handler:  mux,
			ErrorLog: slog.NewLogLogger(log.StdLogger().Handler(), slog.LevelError),
		}
		go func() {
			log.Info("metrics endpoint listening",
				logger.Field{Key: "addr", Value: cfg.Metrics.Addr})
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics endpoint failed", err)
			}
		}()
	}

	sched, err := buildScheduler(cfg, store, log, metrics)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	if err := seedJobs(ctx, sched, cfg, log); err != nil {
		fatal(err)
	}

	if err := sched.Start(ctx); err != nil {
		fatal(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	failed := false
	select {
	case sig := <-sigCh:
		log.Info("shutting down", logger.Field{Key: "signal", Value: sig.String()})
	case err := <-sched.Err():
		log.Error("scheduler failed", err)
		failed = true
	}

	sched.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if failed {
		store.Close()
		os.Exit(1)
	}
}

// seedJobs upserts the config-declared jobs. Their IDs are derived from the
// operation and target when not set explicitly, so reseeding on every start
// updates rather than duplicates them; a job the operator paused stays
// paused.
func seedJobs(ctx context.Context, sched *scheduler.Scheduler, cfg *config.Config, log *logger.Logger) error {
	for i, entry := range cfg.ScheduledJobs {
		params, err := entryToParams(entry)
		if err != nil {
			return fmt.Errorf("scheduled_jobs[%d]: %w", i, err)
		}
		id, err := sched.SeedJob(ctx, params)
		if err != nil {
			return fmt.Errorf("scheduled_jobs[%d]: %w", i, err)
		}
		log.Info("seeded job from config", logger.Field{Key: "job_id", Value: id})
	}
	return nil
}

// entryToParams converts a config job entry into scheduler parameters. A
// seeded job without an explicit ID gets the stable "<operation>_<target>"
// form instead of a timestamped one, keeping reseeding idempotent.
func entryToParams(entry config.JobEntry) (scheduler.AddJobParams, error) {
	kind, target := entry.Target()
	if kind == "" {
		return scheduler.AddJobParams{}, fmt.Errorf("one of channel_id, video_id, playlist_id or query is required")
	}
	op, err := scheduler.ParseOperation(kind)
	if err != nil {
		return scheduler.AddJobParams{}, err
	}

	id := entry.ID
	if id == "" {
		id = seededJobID(op, target)
	}

	var sched scheduler.Schedule
	switch entry.ScheduleType {
	case "interval":
		sched = scheduler.Schedule{
			Type: scheduler.ScheduleTypeInterval,
			Interval: scheduler.IntervalSpec{
				Unit:  scheduler.IntervalUnit(entry.Interval.Unit),
				Value: entry.Interval.Value,
			},
		}
	case "cron":
		sched = scheduler.Schedule{
			Type: scheduler.ScheduleTypeCron,
			Cron: scheduler.CronSpec{
				Minute:    entry.Cron.Minute,
				Hour:      entry.Cron.Hour,
				Day:       entry.Cron.Day,
				Month:     entry.Cron.Month,
				DayOfWeek: entry.Cron.DayOfWeek,
			},
		}
	}

	return scheduler.AddJobParams{
		ID:              id,
		Operation:       op,
		Target:          target,
		IncludeComments: entry.IncludeComments,
		Schedule:        sched,
	}, nil
}

func seededJobID(op scheduler.Operation, target string) string {
	return fmt.Sprintf("%s_%s", op, strings.ReplaceAll(strings.TrimSpace(target), " ", "_"))
}
