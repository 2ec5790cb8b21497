package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's Prometheus instruments. A nil *Metrics
// disables instrumentation throughout the scheduler.
type Metrics struct {
	registry       prometheus.Registerer
	Firings        *prometheus.CounterVec
	FiringDuration prometheus.Histogram
	InflightJobs   prometheus.Gauge
	Misfires       prometheus.Counter
	OverlapSkips   prometheus.Counter
}

// InitMetrics registers the scheduler metrics on reg (the default registerer
// when nil) and returns them.
func InitMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registry: reg,
		Firings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_firings_total",
				Help:      "Total number of job firings",
			},
			[]string{"status"},
		),
		FiringDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduler_firing_duration_seconds",
				Help:      "Duration of job firings",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		InflightJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scheduler_inflight_jobs",
				Help:      "Number of jobs with a firing in progress",
			},
		),
		Misfires: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_misfires_total",
				Help:      "Total number of firings skipped past the misfire grace window",
			},
		),
		OverlapSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_overlap_skips_total",
				Help:      "Total number of firings skipped because the previous run was still in flight",
			},
		),
	}

	reg.MustRegister(
		m.Firings,
		m.FiringDuration,
		m.InflightJobs,
		m.Misfires,
		m.OverlapSkips,
	)

	return m
}
