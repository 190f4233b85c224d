package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulebook/rbk/storage"
)

// Collector tracks the engine-specific signals called out in the domain
// dependency wiring: drain length, oscillation aborts, commit counts, and
// value-set churn. It has no dependency on a particular storage.Context
// instance; callers record against it from wherever they observe those
// events (typically a storage.WithCommitHook and the error return of
// Context.ProcessEvents/AddValue/RemoveValue).
type Collector struct {
	DrainLength   prometheus.Histogram
	Oscillations  prometheus.Counter
	Commits       prometheus.Counter
	ValueSetChurn prometheus.Counter
}

// NewCollector builds a Collector and registers its metrics against reg. If
// reg is nil, the package's GlobalMetricsRegistry is used instead, so a
// caller that doesn't need a private registry (most callers outside of
// tests) can just pass nil and get the process-wide default.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = GlobalMetricsRegistry
	}
	c := &Collector{
		DrainLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rbk_drain_length",
			Help:    "Number of watcher dispatches performed by a single event drain.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Oscillations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rbk_oscillations_total",
			Help: "Number of event drains aborted for exceeding the maximum chain length.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rbk_commits_total",
			Help: "Number of transactions committed.",
		}),
		ValueSetChurn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rbk_value_set_churn_total",
			Help: "Number of value-set entries added or removed.",
		}),
	}
	reg.MustRegister(c.DrainLength, c.Oscillations, c.Commits, c.ValueSetChurn)
	return c
}

// CommitHook returns a callback suitable for storage.WithCommitHook that
// records one commit per invocation.
func (c *Collector) CommitHook() func([]storage.Committer) {
	return func([]storage.Committer) {
		c.Commits.Inc()
	}
}

// RecordOscillation records that a drain aborted with an oscillation error.
func (c *Collector) RecordOscillation() {
	c.Oscillations.Inc()
}

// RecordChurn records that a value-set entry was added or removed.
func (c *Collector) RecordChurn() {
	c.ValueSetChurn.Inc()
}
