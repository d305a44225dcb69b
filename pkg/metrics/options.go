package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "wordgraph" namespace. Empty keeps the default.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem overrides the "engine" subsystem.
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithPrefix prepends p to every metric name after the subsystem.
func WithPrefix(p string) Option {
	return func(m *Manager) { m.prefix = p }
}

// WithLatencyBuckets sets the millisecond buckets shared by the tick, HTTP and
// collaborator latency histograms.
func WithLatencyBuckets(b []float64) Option {
	return func(m *Manager) {
		if len(b) > 0 {
			m.latencyBuckets = b
		}
	}
}

// WithConstLabels attaches labels to every collector, e.g. an instance name.
func WithConstLabels(l map[string]string) Option {
	return func(m *Manager) {
		if l != nil {
			m.constLabels = l
		}
	}
}

// WithRefreshInterval sets how often the process gauges are sampled.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// WithRegisterer registers collectors on r instead of the default registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
