// Package jobstore persists scheduler jobs in a SQLite database. The same
// file is shared by a running scheduler and the control CLI, so the store is
// opened in WAL mode with a busy timeout.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/aatumaykin/ytscout/internal/scheduler"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	operation        TEXT NOT NULL,
	target           TEXT NOT NULL,
	include_comments INTEGER NOT NULL DEFAULT 0,
	schedule_type    TEXT NOT NULL DEFAULT '',
	interval_unit    TEXT NOT NULL DEFAULT '',
	interval_value   INTEGER NOT NULL DEFAULT 0,
	cron_minute      TEXT NOT NULL DEFAULT '',
	cron_hour        TEXT NOT NULL DEFAULT '',
	cron_day         TEXT NOT NULL DEFAULT '',
	cron_month       TEXT NOT NULL DEFAULT '',
	cron_dow         TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT 'active',
	next_fire_time   INTEGER,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(state, next_fire_time);
`

// Store is a SQLite-backed scheduler.Store.
type Store struct {
	db *sqlx.DB
}

var _ scheduler.Store = (*Store)(nil)

// Open creates or opens the database at path, creating parent directories as
// needed, and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jobstore: create directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open %s: %w", path, err)
	}
	// One writer at a time keeps SQLite happy under concurrent access.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("jobstore: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobstore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type jobRow struct {
	ID              string `db:"id"`
	Operation       string `db:"operation"`
	Target          string `db:"target"`
	IncludeComments bool   `db:"include_comments"`
	ScheduleType    string `db:"schedule_type"`
	IntervalUnit    string `db:"interval_unit"`
	IntervalValue   int    `db:"interval_value"`
	CronMinute      string `db:"cron_minute"`
	CronHour        string `db:"cron_hour"`
	CronDay         string `db:"cron_day"`
	CronMonth       string `db:"cron_month"`
	CronDow         string `db:"cron_dow"`
	State           string `db:"state"`
	NextFireTime    *int64 `db:"next_fire_time"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func toRow(job scheduler.JobDescriptor, now time.Time) jobRow {
	row := jobRow{
		ID:              job.ID,
		Operation:       string(job.Operation),
		Target:          job.Target,
		IncludeComments: job.IncludeComments,
		ScheduleType:    string(job.Schedule.Type),
		IntervalUnit:    string(job.Schedule.Interval.Unit),
		IntervalValue:   job.Schedule.Interval.Value,
		CronMinute:      job.Schedule.Cron.Minute,
		CronHour:        job.Schedule.Cron.Hour,
		CronDay:         job.Schedule.Cron.Day,
		CronMonth:       job.Schedule.Cron.Month,
		CronDow:         job.Schedule.Cron.DayOfWeek,
		State:           string(job.State),
		CreatedAt:       now.UnixMilli(),
		UpdatedAt:       now.UnixMilli(),
	}
	if job.NextFireTime != nil {
		ms := job.NextFireTime.UnixMilli()
		row.NextFireTime = &ms
	}
	return row
}

func (r jobRow) toJob() scheduler.JobDescriptor {
	job := scheduler.JobDescriptor{
		ID:              r.ID,
		Operation:       scheduler.Operation(r.Operation),
		Target:          r.Target,
		IncludeComments: r.IncludeComments,
		Schedule: scheduler.Schedule{
			Type: scheduler.ScheduleType(r.ScheduleType),
			Interval: scheduler.IntervalSpec{
				Unit:  scheduler.IntervalUnit(r.IntervalUnit),
				Value: r.IntervalValue,
			},
			Cron: scheduler.CronSpec{
				Minute:    r.CronMinute,
				Hour:      r.CronHour,
				Day:       r.CronDay,
				Month:     r.CronMonth,
				DayOfWeek: r.CronDow,
			},
		},
		State: scheduler.State(r.State),
	}
	if r.NextFireTime != nil {
		t := time.UnixMilli(*r.NextFireTime).UTC()
		job.NextFireTime = &t
	}
	return job
}

// Put inserts or replaces a job, preserving created_at on replace.
func (s *Store) Put(ctx context.Context, job scheduler.JobDescriptor) error {
	row := toRow(job, time.Now())
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO jobs (
			id, operation, target, include_comments,
			schedule_type, interval_unit, interval_value,
			cron_minute, cron_hour, cron_day, cron_month, cron_dow,
			state, next_fire_time, created_at, updated_at
		) VALUES (
			:id, :operation, :target, :include_comments,
			:schedule_type, :interval_unit, :interval_value,
			:cron_minute, :cron_hour, :cron_day, :cron_month, :cron_dow,
			:state, :next_fire_time, :created_at, :updated_at
		)
		ON CONFLICT(id) DO UPDATE SET
			operation = excluded.operation,
			target = excluded.target,
			include_comments = excluded.include_comments,
			schedule_type = excluded.schedule_type,
			interval_unit = excluded.interval_unit,
			interval_value = excluded.interval_value,
			cron_minute = excluded.cron_minute,
			cron_hour = excluded.cron_hour,
			cron_day = excluded.cron_day,
			cron_month = excluded.cron_month,
			cron_dow = excluded.cron_dow,
			state = excluded.state,
			next_fire_time = excluded.next_fire_time,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("jobstore: put %s: %w", job.ID, err)
	}
	return nil
}

// Get returns a job by ID.
func (s *Store) Get(ctx context.Context, id string) (scheduler.JobDescriptor, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.JobDescriptor{}, scheduler.ErrJobNotFound
	}
	if err != nil {
		return scheduler.JobDescriptor{}, fmt.Errorf("jobstore: get %s: %w", id, err)
	}
	return row.toJob(), nil
}

// Remove deletes a job, reporting whether it existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("jobstore: remove %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("jobstore: remove %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns all jobs ordered by ID.
func (s *Store) List(ctx context.Context) ([]scheduler.JobDescriptor, error) {
	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM jobs ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("jobstore: list: %w", err)
	}
	jobs := make([]scheduler.JobDescriptor, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

// ListDue returns active jobs due at or before asOf, soonest first.
func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]scheduler.JobDescriptor, error) {
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM jobs
		WHERE state = ? AND next_fire_time IS NOT NULL AND next_fire_time <= ?
		ORDER BY next_fire_time ASC, id ASC`,
		string(scheduler.StateActive), asOf.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("jobstore: list due: %w", err)
	}
	jobs := make([]scheduler.JobDescriptor, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

// SetState updates a job's state. Pausing clears the next fire time in the
// same statement, keeping the paused-implies-dormant invariant in one write.
func (s *Store) SetState(ctx context.Context, id string, state scheduler.State) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			state = ?,
			next_fire_time = CASE WHEN ? = 'paused' THEN NULL ELSE next_fire_time END,
			updated_at = ?
		WHERE id = ?`,
		string(state), string(state), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("jobstore: set state %s: %w", id, err)
	}
	return affectedOrNotFound(res, id)
}

// SetNextFireTime updates a job's next fire time; nil clears it.
func (s *Store) SetNextFireTime(ctx context.Context, id string, next *time.Time) error {
	var ms *int64
	if next != nil {
		v := next.UnixMilli()
		ms = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET next_fire_time = ?, updated_at = ? WHERE id = ?`,
		ms, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("jobstore: set next fire time %s: %w", id, err)
	}
	return affectedOrNotFound(res, id)
}

func affectedOrNotFound(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobstore: update %s: %w", id, err)
	}
	if n == 0 {
		return scheduler.ErrJobNotFound
	}
	return nil
}
