package force

import (
	"github.com/okian/wordgraph/internal/domain/model"
)

// Params are the physical constants of a Simulator.
type Params struct {
	AlphaDecay float64 // geometric cooling factor per tick
	AlphaMin   float64 // below this the simulation is idle
	Friction   float64 // velocity retention per tick, in (0,1)

	ChargeStrength    float64 // negative repels
	ChargeDistanceMin float64
	ChargeDistanceMax float64 // 0 means unbounded

	CenterStrength float64

	LinkStrength   float64 // 0 selects 1/min(degree) per link
	LinkIterations int

	CollisionPadding    float64
	CollisionStrength   float64
	CollisionIterations int
}

// DefaultParams returns the constants of the default layout.
func DefaultParams() Params {
	return Params{
		AlphaDecay:          0.99,
		AlphaMin:            0.001,
		Friction:            0.6,
		ChargeStrength:      -300,
		ChargeDistanceMin:   1,
		CenterStrength:      0.05,
		LinkIterations:      1,
		CollisionPadding:    10,
		CollisionStrength:   1,
		CollisionIterations: 1,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.AlphaDecay <= 0 || p.AlphaDecay >= 1 {
		p.AlphaDecay = d.AlphaDecay
	}
	if p.AlphaMin <= 0 {
		p.AlphaMin = d.AlphaMin
	}
	if p.Friction <= 0 || p.Friction >= 1 {
		p.Friction = d.Friction
	}
	if p.ChargeDistanceMin <= 0 {
		p.ChargeDistanceMin = d.ChargeDistanceMin
	}
	if p.LinkIterations <= 0 {
		p.LinkIterations = 1
	}
	if p.CollisionIterations <= 0 {
		p.CollisionIterations = 1
	}
	if p.CollisionStrength <= 0 || p.CollisionStrength > 1 {
		p.CollisionStrength = 1
	}
	return p
}

// DistanceFunc returns the rest length of a link with the given weight.
type DistanceFunc func(weight float64) float64

// RadiusFunc returns the collision radius of a node.
type RadiusFunc func(n *model.Node) float64

// Option configures a Simulator.
type Option func(*Simulator)

// WithLinkDistance sets the rest-length curve.
func WithLinkDistance(f DistanceFunc) Option {
	return func(s *Simulator) {
		if f != nil {
			s.distance = f
		}
	}
}

// WithCollisionRadius sets the per-node collision radius.
func WithCollisionRadius(f RadiusFunc) Option {
	return func(s *Simulator) {
		if f != nil {
			s.radius = f
		}
	}
}

// WithCenter sets the point the center force pulls towards.
func WithCenter(c model.Vec) Option {
	return func(s *Simulator) {
		s.center = c
	}
}

// WithJitterHook is called every time a coincident pair is separated by jitter.
func WithJitterHook(f func()) Option {
	return func(s *Simulator) {
		if f != nil {
			s.onJitter = f
		}
	}
}
