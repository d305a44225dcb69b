package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "WORDGRAPH_"
	EnvFile   = "WORDGRAPH_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if WORDGRAPH_CONFIG is set
//  3. env (prefix WORDGRAPH_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvFile))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file
// layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// WORDGRAPH_QUEUE_SIZE -> queue_size; keys are flat so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case !strings.HasPrefix(c.WSPath, "/"):
		return invalid("ws_path must start with /")
	case c.ViewportWidth <= 0 || c.ViewportHeight <= 0:
		return invalid("viewport must be positive, got %vx%v", c.ViewportWidth, c.ViewportHeight)
	case c.TickIntervalMS <= 0:
		return invalid("tick_interval_ms must be positive")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.AlphaDecay < 0 || c.AlphaDecay >= 1:
		return invalid("alpha_decay must be in [0,1)")
	case c.AlphaMin < 0 || c.AlphaMin >= 1:
		return invalid("alpha_min must be in [0,1)")
	case c.Friction < 0 || c.Friction >= 1:
		return invalid("friction must be in [0,1)")
	case c.DragAlphaTarget < 0 || c.DragAlphaTarget > 1:
		return invalid("drag_alpha_target must be in [0,1]")
	case c.MinScale < 0 || c.MaxScale < 0 || (c.MaxScale > 0 && c.MinScale > c.MaxScale):
		return invalid("scale extent [%v,%v] is invalid", c.MinScale, c.MaxScale)
	case c.NewWindowMS <= 0 || c.ExitDurationMS <= 0:
		return invalid("new_window_ms and exit_duration_ms must be positive")
	case c.SimilarityTimeoutMS <= 0:
		return invalid("similarity_timeout_ms must be positive")
	case c.BreakerFailureThreshold <= 0 || c.BreakerTimeoutMS <= 0:
		return invalid("breaker settings must be positive")
	case c.ScoringLatencyMinMS < 0 || c.ScoringLatencyMaxMS < c.ScoringLatencyMinMS:
		return invalid("scoring latency range [%d,%d] is invalid", c.ScoringLatencyMinMS, c.ScoringLatencyMaxMS)
	case c.DedupeSize <= 0:
		return invalid("dedupe_size must be positive")
	case c.MaxHistoryLimit <= 0:
		return invalid("max_history_limit must be positive")
	}
	if _, err := c.LayoutVariant(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
