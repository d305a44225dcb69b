// Package interaction handles pointer gestures: dragging pins a node under
// the pointer while the simulation keeps running, and pan/zoom only changes
// the paint-time transform.
package interaction

import (
	"math"
	"sort"

	"github.com/okian/wordgraph/internal/domain/model"
)

const (
	defaultMinScale        = 0.1
	defaultMaxScale        = 4
	defaultDragAlphaTarget = 0.3
)

// Simulation is the part of the force simulator a drag needs.
type Simulation interface {
	Reheat()
	SetAlphaTarget(t float64)
}

// Graph is the part of the graph state a drag needs.
type Graph interface {
	Node(id string) (*model.Node, bool)
	SetPin(id string, p *model.Vec) error
}

// Controller owns the view transform and the set of dragged nodes.
type Controller struct {
	graph Graph
	sim   Simulation

	transform       Transform
	minScale        float64
	maxScale        float64
	dragAlphaTarget float64
	dragging        map[string]struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithScaleExtent bounds the zoom factor.
func WithScaleExtent(minScale, maxScale float64) Option {
	return func(c *Controller) {
		if minScale > 0 && maxScale >= minScale {
			c.minScale, c.maxScale = minScale, maxScale
		}
	}
}

// WithDragAlphaTarget sets the temperature held while any node is dragged.
func WithDragAlphaTarget(t float64) Option {
	return func(c *Controller) {
		if t >= 0 && t <= 1 {
			c.dragAlphaTarget = t
		}
	}
}

// New creates a Controller.
func New(g Graph, sim Simulation, opts ...Option) *Controller {
	c := &Controller{
		graph:           g,
		sim:             sim,
		transform:       Identity(),
		minScale:        defaultMinScale,
		maxScale:        defaultMaxScale,
		dragAlphaTarget: defaultDragAlphaTarget,
		dragging:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DragStart pins id where it currently is and wakes the simulation.
func (c *Controller) DragStart(id string) error {
	n, ok := c.graph.Node(id)
	if !ok {
		return ErrUnknownNode
	}
	pos := n.Pos
	if err := c.graph.SetPin(id, &pos); err != nil {
		return err
	}
	c.dragging[id] = struct{}{}
	c.sim.Reheat()
	c.sim.SetAlphaTarget(c.dragAlphaTarget)
	return nil
}

// DragMove moves the pin of a dragged node to the world point under screen.
func (c *Controller) DragMove(id string, screen model.Vec) error {
	if _, ok := c.dragging[id]; !ok {
		return ErrNotDragging
	}
	p := c.transform.Invert(screen)
	if !p.Finite() {
		return ErrNonFinite
	}
	return c.graph.SetPin(id, &p)
}

// DragEnd releases the pin. Once no drag is active the temperature is free
// to decay again.
func (c *Controller) DragEnd(id string) error {
	if _, ok := c.dragging[id]; !ok {
		return ErrNotDragging
	}
	delete(c.dragging, id)
	err := c.graph.SetPin(id, nil)
	if len(c.dragging) == 0 {
		c.sim.SetAlphaTarget(0)
	}
	return err
}

// Dragging returns the ids currently held, sorted.
func (c *Controller) Dragging() []string {
	out := make([]string, 0, len(c.dragging))
	for id := range c.dragging {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Forget ends the drag on an id that is leaving the graph. The pin is
// cleared so a restored node rejoins the simulation.
func (c *Controller) Forget(id string) {
	if _, ok := c.dragging[id]; !ok {
		return
	}
	delete(c.dragging, id)
	_ = c.graph.SetPin(id, nil)
	if len(c.dragging) == 0 {
		c.sim.SetAlphaTarget(0)
	}
}

// Prune ends drags whose id is no longer in the graph, e.g. a target node
// re-keyed to the revealed word. It returns the ids it dropped.
func (c *Controller) Prune() []string {
	var gone []string
	for id := range c.dragging {
		if _, ok := c.graph.Node(id); !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		c.Forget(id)
	}
	return gone
}

// ReleaseAll ends every drag and clears the pins it set.
func (c *Controller) ReleaseAll() {
	for id := range c.dragging {
		delete(c.dragging, id)
		_ = c.graph.SetPin(id, nil)
	}
	c.sim.SetAlphaTarget(0)
}

// Transform returns the current view transform.
func (c *Controller) Transform() Transform { return c.transform }

// Zoom scales the view by factor around the screen point anchor, which stays fixed.
func (c *Controller) Zoom(factor float64, anchor model.Vec) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return ErrInvalidScale
	}
	return c.ZoomTo(c.transform.K*factor, anchor)
}

// ZoomTo sets the absolute scale, clamped to the extent, around anchor.
func (c *Controller) ZoomTo(k float64, anchor model.Vec) error {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return ErrInvalidScale
	}
	k = math.Max(c.minScale, math.Min(c.maxScale, k))
	world := c.transform.Invert(anchor)
	return c.set(Transform{
		K: k,
		X: anchor.X - world.X*k,
		Y: anchor.Y - world.Y*k,
	})
}

// Pan translates the view by a screen-space delta.
func (c *Controller) Pan(dx, dy float64) error {
	t := c.transform
	t.X += dx
	t.Y += dy
	return c.set(t)
}

// set installs t unless it would overflow; the old transform is kept then.
func (c *Controller) set(t Transform) error {
	if !t.Finite() {
		return ErrNonFinite
	}
	c.transform = t
	return nil
}

// ResetView restores the identity transform.
func (c *Controller) ResetView() { c.transform = Identity() }
