// Package render turns the graph into draw calls. The engine paints every
// tick through a Painter, which remembers what it drew so that anything gone
// from the graph is explicitly removed from the renderer.
package render

import (
	"time"

	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/visual"
)

// Renderer receives draw calls. Coordinates are world coordinates; the view
// transform is delivered separately to FrameRenderers.
type Renderer interface {
	DrawNode(s visual.NodeStyle)
	DrawLink(s visual.LinkStyle)
	RemoveNode(id string)
	RemoveLink(key string)
}

// FrameRenderer is an optional extension for renderers that want frame
// boundaries, for example to batch a frame into one network message.
type FrameRenderer interface {
	BeginFrame(t interaction.Transform)
	EndFrame()
}

// Painter paints graph state onto a Renderer.
type Painter struct {
	r     Renderer
	frame FrameRenderer

	nodes map[string]struct{}
	links map[string]struct{}
}

// NewPainter creates a Painter for r.
func NewPainter(r Renderer) *Painter {
	p := &Painter{
		r:     r,
		nodes: make(map[string]struct{}),
		links: make(map[string]struct{}),
	}
	if f, ok := r.(FrameRenderer); ok {
		p.frame = f
	}
	return p
}

// Paint draws links then nodes, then removes whatever was drawn last time
// but is no longer present.
func (p *Painter) Paint(nodes []*model.Node, links []*model.Link, enc *visual.Encoder, t interaction.Transform, now time.Time) {
	if p.frame != nil {
		p.frame.BeginFrame(t)
	}

	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	seenLinks := make(map[string]struct{}, len(links))
	for _, l := range links {
		src, ok1 := byID[l.SourceID]
		tgt, ok2 := byID[l.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		p.r.DrawLink(enc.LinkStyle(l, src, tgt, now))
		seenLinks[l.Key()] = struct{}{}
	}

	seenNodes := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		p.r.DrawNode(enc.NodeStyle(n, now))
		seenNodes[n.ID] = struct{}{}
	}

	for k := range p.links {
		if _, ok := seenLinks[k]; !ok {
			p.r.RemoveLink(k)
		}
	}
	for id := range p.nodes {
		if _, ok := seenNodes[id]; !ok {
			p.r.RemoveNode(id)
		}
	}
	p.nodes, p.links = seenNodes, seenLinks

	if p.frame != nil {
		p.frame.EndFrame()
	}
}

// Drawn returns how many nodes and links the renderer currently shows.
func (p *Painter) Drawn() (nodes, links int) { return len(p.nodes), len(p.links) }
