package render

import (
	"sort"
	"sync"

	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/visual"
)

// Recorder is a headless renderer that keeps the latest style of everything
// on screen. It is safe for concurrent use.
type Recorder struct {
	mu        sync.RWMutex
	nodes     map[string]visual.NodeStyle
	links     map[string]visual.LinkStyle
	transform interaction.Transform
	frames    int
	removed   []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		nodes:     make(map[string]visual.NodeStyle),
		links:     make(map[string]visual.LinkStyle),
		transform: interaction.Identity(),
	}
}

func (r *Recorder) DrawNode(s visual.NodeStyle) {
	r.mu.Lock()
	r.nodes[s.ID] = s
	r.mu.Unlock()
}

func (r *Recorder) DrawLink(s visual.LinkStyle) {
	r.mu.Lock()
	r.links[s.Key] = s
	r.mu.Unlock()
}

func (r *Recorder) RemoveNode(id string) {
	r.mu.Lock()
	delete(r.nodes, id)
	r.removed = append(r.removed, id)
	r.mu.Unlock()
}

func (r *Recorder) RemoveLink(key string) {
	r.mu.Lock()
	delete(r.links, key)
	r.mu.Unlock()
}

func (r *Recorder) BeginFrame(t interaction.Transform) {
	r.mu.Lock()
	r.transform = t
	r.mu.Unlock()
}

func (r *Recorder) EndFrame() {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

// Node returns the last drawn style of id.
func (r *Recorder) Node(id string) (visual.NodeStyle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.nodes[id]
	return s, ok
}

// Link returns the last drawn style of the link with key.
func (r *Recorder) Link(key string) (visual.LinkStyle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.links[key]
	return s, ok
}

// Nodes returns every node on screen ordered by id.
func (r *Recorder) Nodes() []visual.NodeStyle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]visual.NodeStyle, 0, len(r.nodes))
	for _, s := range r.nodes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Links returns every link on screen ordered by key.
func (r *Recorder) Links() []visual.LinkStyle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]visual.LinkStyle, 0, len(r.links))
	for _, s := range r.links {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Removed returns the node ids removed so far, in order.
func (r *Recorder) Removed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.removed...)
}

// Frames returns the number of completed frames.
func (r *Recorder) Frames() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frames
}

// Transform returns the view transform of the last frame.
func (r *Recorder) Transform() interaction.Transform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transform
}
