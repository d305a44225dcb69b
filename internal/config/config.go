// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Layer file and environment on top in Load.
// - Zero values of layout overrides keep the variant's own constant.
package config

import (
	"context"
	"time"

	"github.com/okian/wordgraph/internal/domain/variant"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WSPath is where the WebSocket frame stream is mounted.
	WSPath string `koanf:"ws_path"`

	// Variant names the graph flavour: graph, dynamic or combined.
	Variant string `koanf:"variant"`

	ViewportWidth  float64 `koanf:"viewport_width"`
	ViewportHeight float64 `koanf:"viewport_height"`

	// TickIntervalMS is the animation frame period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// QueueSize bounds the engine command mailbox.
	QueueSize int `koanf:"queue_size"`

	// Layout overrides; zero keeps the variant's value.
	AlphaDecay       float64 `koanf:"alpha_decay"`
	AlphaMin         float64 `koanf:"alpha_min"`
	ChargeStrength   float64 `koanf:"charge_strength"`
	CenterStrength   float64 `koanf:"center_strength"`
	CollisionPadding float64 `koanf:"collision_padding"`
	Friction         float64 `koanf:"friction"`
	MinScale         float64 `koanf:"min_scale"`
	MaxScale         float64 `koanf:"max_scale"`

	// DragAlphaTarget is the temperature held while a node is dragged.
	DragAlphaTarget float64 `koanf:"drag_alpha_target"`

	// NewWindowMS and ExitDurationMS time the isNew flag and exit transition.
	NewWindowMS    int `koanf:"new_window_ms"`
	ExitDurationMS int `koanf:"exit_duration_ms"`

	// SimilarityURL selects the HTTP collaborator; empty runs the in-memory one.
	SimilarityURL       string `koanf:"similarity_url"`
	SimilarityTimeoutMS int    `koanf:"similarity_timeout_ms"`

	// Circuit breaker around the HTTP collaborator.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`
	BreakerTimeoutMS        int `koanf:"breaker_timeout_ms"`

	// ScoringLatencyMinMS and ScoringLatencyMaxMS simulate collaborator
	// latency for the in-memory client.
	ScoringLatencyMinMS int `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int `koanf:"scoring_latency_max_ms"`

	// DedupeSize caps the duplicate-guess guard.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New returns a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		WSPath:                  "/ws",
		Variant:                 variant.Dynamic,
		ViewportWidth:           800,
		ViewportHeight:          600,
		TickIntervalMS:          16,
		QueueSize:               1024,
		DragAlphaTarget:         0.3,
		NewWindowMS:             3000,
		ExitDurationMS:          500,
		SimilarityTimeoutMS:     5000,
		BreakerFailureThreshold: 5,
		BreakerTimeoutMS:        30000,
		ScoringLatencyMinMS:     0,
		ScoringLatencyMaxMS:     0,
		DedupeSize:              10_000,
		MaxHistoryLimit:         100,
	}
}

// TickInterval returns the frame period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// NewWindow returns how long a node stays new.
func (c *Config) NewWindow() time.Duration { return ms(c.NewWindowMS) }

// ExitDuration returns how long an exit transition lasts.
func (c *Config) ExitDuration() time.Duration { return ms(c.ExitDurationMS) }

// SimilarityTimeout returns the per-request collaborator timeout.
func (c *Config) SimilarityTimeout() time.Duration { return ms(c.SimilarityTimeoutMS) }

// BreakerTimeout returns how long the breaker stays open.
func (c *Config) BreakerTimeout() time.Duration { return ms(c.BreakerTimeoutMS) }

// ScoringLatency returns the simulated latency bounds.
func (c *Config) ScoringLatency() (time.Duration, time.Duration) {
	return ms(c.ScoringLatencyMinMS), ms(c.ScoringLatencyMaxMS)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// LayoutVariant resolves the configured variant and applies the layout
// overrides to it.
func (c *Config) LayoutVariant() (variant.Variant, error) {
	v, err := variant.Lookup(c.Variant)
	if err != nil {
		return variant.Variant{}, err
	}
	override := func(dst *float64, val float64) {
		if val != 0 {
			*dst = val
		}
	}
	override(&v.Force.AlphaDecay, c.AlphaDecay)
	override(&v.Force.AlphaMin, c.AlphaMin)
	override(&v.Force.ChargeStrength, c.ChargeStrength)
	override(&v.Force.CenterStrength, c.CenterStrength)
	override(&v.Force.CollisionPadding, c.CollisionPadding)
	override(&v.Force.Friction, c.Friction)
	override(&v.MinScale, c.MinScale)
	override(&v.MaxScale, c.MaxScale)
	return v, nil
}
