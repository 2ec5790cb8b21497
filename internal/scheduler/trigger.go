package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// defaultInterval is the fallback period used when a job carries no schedule
// or an unrecognized one.
const defaultInterval = 24 * time.Hour

// Resolver computes fire times from schedules. Cron schedules are evaluated
// in the resolver's location; interval schedules are location-independent.
type Resolver struct {
	loc    *time.Location
	parser cron.Parser
}

// NewResolver creates a Resolver evaluating cron expressions in loc. A nil
// loc means UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		loc:    loc,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Resolve returns the next fire time strictly after from.
//
// A zero-value schedule resolves to from + 24h. An unknown schedule type or
// interval unit also resolves to from + 24h but additionally returns
// ErrUnknownScheduleType / ErrUnknownIntervalUnit so callers can log it; the
// returned time is valid in both cases.
func (r *Resolver) Resolve(s Schedule, from time.Time) (time.Time, error) {
	switch s.Type {
	case ScheduleTypeInterval:
		d, err := s.Interval.Duration()
		if err != nil {
			return from.Add(defaultInterval), err
		}
		if d <= 0 {
			return from.Add(defaultInterval), nil
		}
		return from.Add(d), nil

	case ScheduleTypeCron:
		sched, err := r.parser.Parse(s.Cron.Expr())
		if err != nil {
			// Creation validates cron fields, so this only fires on corrupted
			// stored data; fall back rather than wedge the job.
			return from.Add(defaultInterval), &ValidationError{Field: "cron", Reason: err.Error()}
		}
		return sched.Next(from.In(r.loc)), nil

	case "":
		// No schedule configured: daily default.
		return from.Add(defaultInterval), nil

	default:
		return from.Add(defaultInterval), ErrUnknownScheduleType
	}
}

// ValidateSchedule checks that a schedule is well-formed for job creation.
// Stricter than Resolve: creation rejects what resolution would only warn
// about. A zero-value schedule passes (it gets the daily default).
func (r *Resolver) ValidateSchedule(s Schedule) error {
	switch s.Type {
	case ScheduleTypeInterval:
		if _, err := ParseIntervalUnit(string(s.Interval.Unit)); err != nil {
			return err
		}
		if s.Interval.Value <= 0 {
			return &ValidationError{Field: "interval.value", Reason: "must be positive"}
		}
		return nil
	case ScheduleTypeCron:
		if _, err := r.parser.Parse(s.Cron.Expr()); err != nil {
			return &ValidationError{Field: "cron", Reason: err.Error()}
		}
		return nil
	case "":
		return nil
	default:
		return &ValidationError{Field: "schedule.type", Reason: string(s.Type)}
	}
}
