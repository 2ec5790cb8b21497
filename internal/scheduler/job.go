// Package scheduler provides a persistent, configuration-driven job scheduler
// for recurring YouTube scrape operations. Jobs are kept in a durable store,
// fired by a tick-driven dispatcher on a bounded worker pool, and managed
// through an explicit control surface (add, list, pause, resume, remove,
// run-now). All state is owned by the Scheduler instance; there are no
// package-level singletons.
package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Operation identifies which scrape a job performs.
type Operation string

const (
	OpChannel  Operation = "channel"
	OpVideo    Operation = "video"
	OpPlaylist Operation = "playlist"
	OpSearch   Operation = "search"
)

// ParseOperation converts a string into an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(s))) {
	case OpChannel:
		return OpChannel, nil
	case OpVideo:
		return OpVideo, nil
	case OpPlaylist:
		return OpPlaylist, nil
	case OpSearch:
		return OpSearch, nil
	default:
		return "", &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", s)}
	}
}

// DefaultIncludeComments returns the per-operation default for comment
// scraping: true for single videos, false everywhere else.
func DefaultIncludeComments(op Operation) bool {
	return op == OpVideo
}

// State is the lifecycle state of a job.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
)

// ScheduleType tags the schedule variant of a job.
type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "interval"
	ScheduleTypeCron     ScheduleType = "cron"
)

// IntervalUnit is the unit of an interval schedule.
type IntervalUnit string

const (
	UnitSeconds IntervalUnit = "seconds"
	UnitMinutes IntervalUnit = "minutes"
	UnitHours   IntervalUnit = "hours"
	UnitDays    IntervalUnit = "days"
	UnitWeeks   IntervalUnit = "weeks"
)

// ParseIntervalUnit converts a string into an IntervalUnit.
func ParseIntervalUnit(s string) (IntervalUnit, error) {
	switch IntervalUnit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitSeconds:
		return UnitSeconds, nil
	case UnitMinutes:
		return UnitMinutes, nil
	case UnitHours:
		return UnitHours, nil
	case UnitDays:
		return UnitDays, nil
	case UnitWeeks:
		return UnitWeeks, nil
	default:
		return "", &ValidationError{Field: "interval.unit", Reason: fmt.Sprintf("unknown interval unit %q", s)}
	}
}

// IntervalSpec is a fixed-period schedule.
type IntervalSpec struct {
	Unit  IntervalUnit
	Value int
}

// Duration converts the interval into a time.Duration.
func (i IntervalSpec) Duration() (time.Duration, error) {
	switch i.Unit {
	case UnitSeconds:
		return time.Duration(i.Value) * time.Second, nil
	case UnitMinutes:
		return time.Duration(i.Value) * time.Minute, nil
	case UnitHours:
		return time.Duration(i.Value) * time.Hour, nil
	case UnitDays:
		return time.Duration(i.Value) * 24 * time.Hour, nil
	case UnitWeeks:
		return time.Duration(i.Value) * 7 * 24 * time.Hour, nil
	default:
		return 0, ErrUnknownIntervalUnit
	}
}

// CronSpec is a five-field calendar schedule. Empty fields take their
// defaults: minute and hour default to "0", the rest to "*" (daily at
// midnight when nothing is set).
type CronSpec struct {
	Minute    string
	Hour      string
	Day       string
	Month     string
	DayOfWeek string
}

// Expr renders the fields as a standard five-field cron expression.
func (c CronSpec) Expr() string {
	return strings.Join([]string{
		orDefault(c.Minute, "0"),
		orDefault(c.Hour, "0"),
		orDefault(c.Day, "*"),
		orDefault(c.Month, "*"),
		orDefault(c.DayOfWeek, "*"),
	}, " ")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Schedule is the tagged schedule variant of a job. It is immutable after
// creation; changing a job's schedule requires remove + re-add.
type Schedule struct {
	Type     ScheduleType
	Interval IntervalSpec
	Cron     CronSpec
}

// Description returns a human-readable one-line form for listings.
func (s Schedule) Description() string {
	switch s.Type {
	case ScheduleTypeInterval:
		return fmt.Sprintf("interval[every %d %s]", s.Interval.Value, s.Interval.Unit)
	case ScheduleTypeCron:
		return fmt.Sprintf("cron[%s]", s.Cron.Expr())
	default:
		return "interval[every 1 days] (default)"
	}
}

// JobDescriptor is the persisted record describing what to fetch, how often,
// and its current state. The job store owns the canonical copy.
type JobDescriptor struct {
	ID              string
	Operation       Operation
	Target          string // channel id / video id / playlist id / search query
	IncludeComments bool
	Schedule        Schedule
	State           State
	NextFireTime    *time.Time // nil while paused
}

// DefaultJobID derives a job ID from the operation, target and creation time,
// e.g. "video_dQw4w9WgXcQ_20260830120000".
func DefaultJobID(op Operation, target string, now time.Time) string {
	t := strings.ReplaceAll(strings.TrimSpace(target), " ", "_")
	return fmt.Sprintf("%s_%s_%s", op, t, now.Format("20060102150405"))
}
