// Package force implements the velocity-Verlet style layout integrator.
//
// The model follows the usual many-body recipe: every tick the temperature α
// cools geometrically towards its target, each force adds an α-scaled
// velocity contribution, velocities are damped by friction and added to
// positions, and finally overlapping nodes are pushed apart directly.
// Pinned nodes never accumulate force and sit exactly on their pin; exiting
// nodes are frozen and invisible to the other nodes.
package force

import (
	"math"

	"github.com/okian/wordgraph/internal/domain/model"
)

const (
	defaultDistance = 30.0
	defaultRadius   = 10.0
	jitterScale     = 1e-6

	// Numerical Recipes LCG, seeded with 1.
	lcgA    = 1664525
	lcgC    = 1013904223
	lcgSeed = 1
)

// Simulator advances node positions. It is not safe for concurrent use.
type Simulator struct {
	p           Params
	alpha       float64
	alphaTarget float64

	distance DistanceFunc
	radius   RadiusFunc
	center   model.Vec
	onJitter func()

	lcg uint32

	// per-step scratch
	idx   map[string]int
	count []int
}

// New creates a Simulator at full temperature.
func New(p Params, opts ...Option) *Simulator {
	s := &Simulator{
		p:        p.normalized(),
		alpha:    1,
		distance: func(float64) float64 { return defaultDistance },
		radius:   func(*model.Node) float64 { return defaultRadius },
		onJitter: func() {},
		lcg:      lcgSeed,
		idx:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the effective constants.
func (s *Simulator) Params() Params { return s.p }

// Alpha returns the current temperature.
func (s *Simulator) Alpha() float64 { return s.alpha }

// AlphaTarget returns the temperature α cools towards.
func (s *Simulator) AlphaTarget() float64 { return s.alphaTarget }

// SetAlpha sets the temperature, clamped to [0,1].
func (s *Simulator) SetAlpha(a float64) { s.alpha = clamp01(a) }

// SetAlphaTarget sets the temperature α cools towards, clamped to [0,1].
func (s *Simulator) SetAlphaTarget(t float64) { s.alphaTarget = clamp01(t) }

// Reheat resets α to 1.
func (s *Simulator) Reheat() { s.alpha = 1 }

// SetCenter moves the center force anchor.
func (s *Simulator) SetCenter(c model.Vec) { s.center = c }

// Active reports whether another tick would move anything.
func (s *Simulator) Active() bool { return s.alpha >= s.p.AlphaMin }

// ResetJitter rewinds the jitter sequence so runs are reproducible.
func (s *Simulator) ResetJitter() { s.lcg = lcgSeed }

// Step runs one tick over nodes and links and reports whether the
// simulation is still active afterwards.
func (s *Simulator) Step(nodes []*model.Node, links []*model.Link) bool {
	s.alpha = s.alphaTarget + (s.alpha-s.alphaTarget)*s.p.AlphaDecay

	live := s.participants(nodes)
	s.applyLinks(live, links)
	s.applyCharge(live)
	s.applyCenter(live)
	s.integrate(live)
	s.applyCollision(live)

	return s.Active()
}

func (s *Simulator) participants(nodes []*model.Node) []*model.Node {
	for k := range s.idx {
		delete(s.idx, k)
	}
	live := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Exiting() {
			continue
		}
		s.idx[n.ID] = len(live)
		live = append(live, n)
	}
	return live
}

func (s *Simulator) applyLinks(live []*model.Node, links []*model.Link) {
	if cap(s.count) < len(live) {
		s.count = make([]int, len(live))
	}
	s.count = s.count[:len(live)]
	for i := range s.count {
		s.count[i] = 0
	}

	type edge struct {
		src, tgt int
		dist     float64
	}
	edges := make([]edge, 0, len(links))
	for _, l := range links {
		if l == nil || l.Exiting() {
			continue
		}
		si, ok1 := s.idx[l.SourceID]
		ti, ok2 := s.idx[l.TargetID]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		s.count[si]++
		s.count[ti]++
		edges = append(edges, edge{src: si, tgt: ti, dist: s.distance(l.Weight)})
	}

	for it := 0; it < s.p.LinkIterations; it++ {
		for _, e := range edges {
			src, tgt := live[e.src], live[e.tgt]
			d := tgt.Pos.Add(tgt.Vel).Sub(src.Pos.Add(src.Vel))
			if d.X == 0 {
				d.X = s.jiggle()
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
			}
			l := d.Len()
			strength := s.p.LinkStrength
			if strength <= 0 {
				strength = 1 / float64(min(s.count[e.src], s.count[e.tgt]))
			}
			k := (l - e.dist) / l * s.alpha * strength
			d = d.Scale(k)
			bias := float64(s.count[e.src]) / float64(s.count[e.src]+s.count[e.tgt])
			if !tgt.Pinned() {
				tgt.Vel = tgt.Vel.Sub(d.Scale(bias))
			}
			if !src.Pinned() {
				src.Vel = src.Vel.Add(d.Scale(1 - bias))
			}
		}
	}
}

// applyCharge is d3's many-body force: each pair adds d·strength·α/|d|² to
// the velocity. The inverse square is taken of the displacement vector d, so
// the resulting magnitude falls off as 1/|d|, not 1/|d|².
func (s *Simulator) applyCharge(live []*model.Node) {
	if s.p.ChargeStrength == 0 {
		return
	}
	minSq := s.p.ChargeDistanceMin * s.p.ChargeDistanceMin
	maxSq := math.Inf(1)
	if s.p.ChargeDistanceMax > 0 {
		maxSq = s.p.ChargeDistanceMax * s.p.ChargeDistanceMax
	}
	for i, a := range live {
		if a.Pinned() {
			continue
		}
		for j, b := range live {
			if i == j {
				continue
			}
			d := b.Pos.Sub(a.Pos)
			l2 := d.X*d.X + d.Y*d.Y
			if l2 >= maxSq {
				continue
			}
			if d.X == 0 {
				d.X = s.jiggle()
				l2 += d.X * d.X
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
				l2 += d.Y * d.Y
			}
			if l2 < minSq {
				l2 = math.Sqrt(minSq * l2)
			}
			w := s.p.ChargeStrength * s.alpha / l2
			a.Vel = a.Vel.Add(d.Scale(w))
		}
	}
}

func (s *Simulator) applyCenter(live []*model.Node) {
	if s.p.CenterStrength == 0 {
		return
	}
	k := s.p.CenterStrength * s.alpha
	for _, n := range live {
		if n.Pinned() {
			continue
		}
		n.Vel = n.Vel.Add(s.center.Sub(n.Pos).Scale(k))
	}
}

func (s *Simulator) integrate(live []*model.Node) {
	for _, n := range live {
		if n.Pinned() {
			if n.Pin.Finite() {
				n.Pos = *n.Pin
			}
			n.Vel = model.Vec{}
			continue
		}
		n.Vel = n.Vel.Scale(s.p.Friction)
		n.Pos = n.Pos.Add(n.Vel)
		if !n.Pos.Finite() || !n.Vel.Finite() {
			n.Pos = s.center.Add(model.Vec{X: s.jiggle(), Y: s.jiggle()})
			n.Vel = model.Vec{}
		}
	}
}

func (s *Simulator) applyCollision(live []*model.Node) {
	if len(live) < 2 {
		return
	}
	radii := make([]float64, len(live))
	for i, n := range live {
		radii[i] = s.radius(n)
	}
	for it := 0; it < s.p.CollisionIterations; it++ {
		for i := 0; i < len(live); i++ {
			a := live[i]
			for j := i + 1; j < len(live); j++ {
				b := live[j]
				if a.Pinned() && b.Pinned() {
					continue
				}
				minSep := radii[i] + radii[j] + s.p.CollisionPadding
				d := b.Pos.Sub(a.Pos)
				l := d.Len()
				if l >= minSep {
					continue
				}
				if l == 0 {
					d = model.Vec{X: s.jiggle(), Y: s.jiggle()}
					l = d.Len()
				}
				push := d.Scale((minSep - l) / l * s.p.CollisionStrength)

				var wa, wb float64
				switch {
				case a.Pinned():
					wb = 1
				case b.Pinned():
					wa = 1
				default:
					ra, rb := radii[i]*radii[i], radii[j]*radii[j]
					if ra+rb == 0 {
						wa, wb = 0.5, 0.5
					} else {
						wa, wb = rb/(ra+rb), ra/(ra+rb)
					}
				}
				a.Pos = a.Pos.Sub(push.Scale(wa))
				b.Pos = b.Pos.Add(push.Scale(wb))
			}
		}
	}
}

// jiggle returns a tiny deterministic non-zero offset.
func (s *Simulator) jiggle() float64 {
	s.onJitter()
	for {
		s.lcg = lcgA*s.lcg + lcgC
		v := (float64(s.lcg)/4294967296 - 0.5) * jitterScale
		if v != 0 {
			return v
		}
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
