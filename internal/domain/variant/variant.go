// Package variant bundles the layout and encoding choices of each graph
// flavour so a single engine can render all of them.
package variant

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/wordgraph/internal/domain/force"
	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/visual"
)

// Names of the built-in variants.
const (
	Graph    = "graph"
	Dynamic  = "dynamic"
	Combined = "combined"
)

// ErrUnknownVariant is returned by Lookup for an unregistered name.
var ErrUnknownVariant = errors.New("unknown variant")

// CollisionRule selects how collision radii are derived.
type CollisionRule int

const (
	// CollideRendered uses each node's drawn radius.
	CollideRendered CollisionRule = iota
	// CollideFixed uses the same radius for every node.
	CollideFixed
)

// Variant is a complete engine configuration.
type Variant struct {
	Name   string
	Force  force.Params
	Visual visual.Config
	Spawn  graph.SpawnRule

	Collision      CollisionRule
	FixedCollision float64

	MinScale float64
	MaxScale float64
}

// CollisionRadius returns the collision radius function for this variant.
func (v Variant) CollisionRadius(enc *visual.Encoder) force.RadiusFunc {
	if v.Collision == CollideFixed {
		r := v.FixedCollision
		return func(*model.Node) float64 { return r }
	}
	return enc.NodeRadius
}

// Options returns the simulator options derived from this variant.
func (v Variant) Options(enc *visual.Encoder) []force.Option {
	return []force.Option{
		force.WithLinkDistance(enc.LinkDistance),
		force.WithCollisionRadius(v.CollisionRadius(enc)),
	}
}

var registry = map[string]func() Variant{
	Graph:    graphVariant,
	Dynamic:  dynamicVariant,
	Combined: combinedVariant,
}

// Lookup returns a fresh copy of the named variant.
func Lookup(name string) (Variant, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return f(), nil
}

// Names lists the registered variants in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default returns the dynamic variant.
func Default() Variant { return dynamicVariant() }

// graphVariant: stepped colors, quadratic edge widths, strong repulsion,
// wide fixed collision radius.
func graphVariant() Variant {
	p := force.DefaultParams()
	p.ChargeStrength = -300
	p.CollisionPadding = 0

	c := visual.DefaultConfig()
	c.ColorCurve = visual.ColorStepped
	c.Saturation = 100
	c.BaseRadius = 10
	c.MaxRadius = 20
	c.TargetRadius = 20
	c.WidthCurve = visual.WidthQuadratic
	c.MinWidth = 1
	c.MaxWidth = 15
	c.InterWordWidthScale = 0.7
	c.MinInterWordWidth = 0.5
	c.MinOpacity = 0.8
	c.MaxOpacity = 0.8
	c.InterWordOpacityScale = 0.75
	c.LinkDistanceScale = 2

	return Variant{
		Name:           Graph,
		Force:          p,
		Visual:         c,
		Spawn:          graph.SpawnAtTarget,
		Collision:      CollideFixed,
		FixedCollision: 40,
		MinScale:       0.3,
		MaxScale:       3,
	}
}

// dynamicVariant: continuous hue, linear widths, radius-aware collision.
func dynamicVariant() Variant {
	p := force.DefaultParams()
	p.ChargeStrength = -300
	p.CollisionPadding = 10

	return Variant{
		Name:      Dynamic,
		Force:     p,
		Visual:    visual.DefaultConfig(),
		Spawn:     graph.SpawnAtTarget,
		Collision: CollideRendered,
		MinScale:  0.1,
		MaxScale:  4,
	}
}

// combinedVariant: softer repulsion, small nodes, spawn from the center and
// a stronger pull towards it.
func combinedVariant() Variant {
	p := force.DefaultParams()
	p.ChargeStrength = -200
	p.CenterStrength = 0.1
	p.CollisionPadding = 0

	c := visual.DefaultConfig()
	c.BaseRadius = 6
	c.MaxRadius = 12.7
	c.TargetRadius = 12
	c.WidthCurve = visual.WidthProportional
	c.MinWidth = 1
	c.MaxWidth = 5
	c.MinOpacity = 0.6
	c.MaxOpacity = 0.6
	c.LinkDistanceScale = 1.5

	return Variant{
		Name:           Combined,
		Force:          p,
		Visual:         c,
		Spawn:          graph.SpawnAtCenter,
		Collision:      CollideFixed,
		FixedCollision: 25,
		MinScale:       0.3,
		MaxScale:       3,
	}
}
