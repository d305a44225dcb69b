package graph

import (
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
)

// SpawnRule decides where a newly added node first appears.
type SpawnRule int

const (
	// SpawnAtTarget places new nodes on the target node, falling back to the center.
	SpawnAtTarget SpawnRule = iota
	// SpawnAtCenter always places new nodes at the viewport center.
	SpawnAtCenter
)

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for dropped records.
func WithLogger(l logger.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the time source for transition timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *State) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithCenter sets the viewport center in world coordinates.
func WithCenter(c model.Vec) Option {
	return func(s *State) {
		s.center = c
	}
}

// WithSpawnRule sets where new nodes appear.
func WithSpawnRule(r SpawnRule) Option {
	return func(s *State) {
		s.spawn = r
	}
}
