// Package graph holds the authoritative node and link set of one visualization round.
//
// A State is not safe for concurrent use; the engine mutates it from a
// single loop goroutine and hands out copies through Get.
package graph

import (
	"context"
	"strings"
	"time"

	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

// State is the live graph.
type State struct {
	nodes     map[string]*model.Node
	nodeOrder []string
	links     map[string]*model.Link
	linkOrder []string
	targetID  string

	center model.Vec
	spawn  SpawnRule
	clock  clock.Clock
	log    logger.Logger
}

// MergeResult describes what Apply did to the node set.
type MergeResult struct {
	Added    []string // ids created by this apply
	Restored []string // exiting ids brought back by this apply
	Updated  []string // live ids whose score was refreshed
	Dropped  int      // malformed records skipped
}

// View is an immutable copy of the graph.
type View struct {
	TargetID string       `json:"targetId"`
	Nodes    []model.Node `json:"nodes"`
	Links    []model.Link `json:"links"`
}

// Node returns the copy of the node with the given id.
func (v View) Node(id string) (model.Node, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Node{}, false
}

// Link returns the copy of the link between a and b.
func (v View) Link(a, b string) (model.Link, bool) {
	key := model.PairKey(a, b)
	for _, l := range v.Links {
		if l.Key() == key {
			return l, true
		}
	}
	return model.Link{}, false
}

// New creates an empty State.
func New(opts ...Option) *State {
	s := &State{
		nodes: make(map[string]*model.Node),
		links: make(map[string]*model.Link),
		clock: clock.Real(),
		log:   logger.GetOrNop().Named("graph"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset discards every node and link.
func (s *State) Reset() {
	s.nodes = make(map[string]*model.Node)
	s.links = make(map[string]*model.Link)
	s.nodeOrder = nil
	s.linkOrder = nil
	s.targetID = ""
}

// SetCenter moves the viewport center used for spawning and centering.
func (s *State) SetCenter(c model.Vec) { s.center = c }

// Center returns the viewport center.
func (s *State) Center() model.Vec { return s.center }

// TargetID returns the id of the target node, or "" before the first apply.
func (s *State) TargetID() string { return s.targetID }

// Apply merges snap into the graph.
//
// Existing nodes keep position and velocity; new nodes start at the spawn
// point with zero velocity. For a full snapshot the link set is rebuilt and
// links absent from it begin exiting; a partial snapshot only upserts.
// Malformed records are dropped and counted, never returned as errors.
func (s *State) Apply(ctx context.Context, snap model.Snapshot) MergeResult {
	now := s.clock.Now()
	var res MergeResult

	target := s.ensureTarget(ctx, strings.TrimSpace(snap.Target()), now)

	// Merge nodes.
	seen := make(map[string]struct{}, len(snap.Guesses))
	guessIDs := make([]string, 0, len(snap.Guesses))
	for _, g := range snap.Guesses {
		id := strings.TrimSpace(g.Word)
		if id == "" {
			res.Dropped++
			s.drop(ctx, DropEmptyWord, "guess with empty word")
			continue
		}
		if id == target.ID {
			// The target itself was guessed; it is already represented.
			continue
		}
		score := model.ClampScore(g.Score)
		if n, ok := s.nodes[id]; ok {
			n.Score = score
			if _, dup := seen[id]; !dup {
				if n.Exiting() {
					n.ExitingSince = time.Time{}
					n.EnteredAt = now
					res.Restored = append(res.Restored, id)
				} else {
					res.Updated = append(res.Updated, id)
				}
			}
		} else {
			s.addNode(&model.Node{
				ID:        id,
				Score:     score,
				Pos:       s.spawnPoint(target),
				EnteredAt: now,
			})
			res.Added = append(res.Added, id)
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			guessIDs = append(guessIDs, id)
		}
	}

	// Rebuild links.
	want := make(map[string]*model.Link, len(guessIDs)+len(snap.Pairs))
	wantOrder := make([]string, 0, len(guessIDs)+len(snap.Pairs))
	put := func(l *model.Link) {
		k := l.Key()
		if _, ok := want[k]; !ok {
			wantOrder = append(wantOrder, k)
		}
		want[k] = l
	}
	starIDs := guessIDs
	if snap.Partial {
		starIDs = s.IDs()
	}
	for _, id := range starIDs {
		put(&model.Link{SourceID: target.ID, TargetID: id, Weight: s.nodes[id].Score, IsToTarget: true})
	}
	live := func(id string) bool {
		n, ok := s.nodes[id]
		if !ok || n.Exiting() {
			return false
		}
		if snap.Partial {
			return true
		}
		_, in := seen[id]
		return in
	}
	for _, p := range snap.Pairs {
		a, b := strings.TrimSpace(p.A), strings.TrimSpace(p.B)
		switch {
		case a == b:
			res.Dropped++
			s.drop(ctx, DropSelfLink, "pairwise record links a word to itself", logger.String("word", a))
			continue
		case a == target.ID || b == target.ID:
			res.Dropped++
			s.drop(ctx, DropTargetEndpoint, "pairwise record references the target", logger.String("a", a), logger.String("b", b))
			continue
		}
		if !live(a) || !live(b) {
			res.Dropped++
			s.drop(ctx, DropUnknownEndpoint, "pairwise record references an unknown node", logger.String("a", a), logger.String("b", b))
			continue
		}
		put(&model.Link{SourceID: a, TargetID: b, Weight: model.ClampScore(p.Similarity)})
	}

	for _, k := range wantOrder {
		nl := want[k]
		if l, ok := s.links[k]; ok {
			l.Weight = nl.Weight
			l.IsToTarget = nl.IsToTarget
			if l.Exiting() {
				l.ExitingSince = time.Time{}
				l.EnteredAt = now
			}
			continue
		}
		nl.EnteredAt = now
		s.addLink(nl)
	}
	if !snap.Partial {
		for _, k := range s.linkOrder {
			if _, keep := want[k]; keep {
				continue
			}
			if l := s.links[k]; !l.Exiting() {
				l.ExitingSince = now
			}
		}
	}

	kind := "full"
	if snap.Partial {
		kind = "partial"
	}
	metrics.RecordSnapshotApplied(kind)
	return res
}

// ensureTarget creates the target node, or re-keys it when the target id changes.
func (s *State) ensureTarget(ctx context.Context, id string, now time.Time) *model.Node {
	if id == "" {
		id = model.HiddenTargetID
	}
	if id == s.targetID {
		if n, ok := s.nodes[id]; ok {
			return n
		}
	}

	var prev *model.Node
	if s.targetID != "" {
		prev = s.nodes[s.targetID]
	}

	// A guess node with the new target id folds into the target.
	if n, ok := s.nodes[id]; ok && !n.IsTarget {
		s.log.Debug(ctx, "guess folded into target", logger.String("id", id))
		if prev == nil {
			prev = n
		}
		s.removeNode(id)
	}

	if prev != nil {
		oldID := prev.ID
		s.removeNode(oldID)
		prev.ID = id
		prev.IsTarget = true
		prev.Score = model.MaxScore
		prev.ExitingSince = time.Time{}
		// A drag held under the old id cannot be ended any more.
		prev.Pin = nil
		s.addNode(prev)
	} else {
		s.addNode(&model.Node{
			ID:        id,
			Score:     model.MaxScore,
			IsTarget:  true,
			Pos:       s.center,
			EnteredAt: now,
		})
	}
	s.targetID = id
	return s.nodes[id]
}

func (s *State) spawnPoint(target *model.Node) model.Vec {
	if s.spawn == SpawnAtTarget && target != nil && target.Pos.Finite() {
		return target.Pos
	}
	return s.center
}

func (s *State) drop(ctx context.Context, reason, msg string, fields ...logger.Field) {
	metrics.RecordLinkDropped(reason)
	s.log.Warn(ctx, msg, append(fields, logger.String("reason", reason))...)
}

func (s *State) addNode(n *model.Node) {
	s.nodes[n.ID] = n
	s.nodeOrder = append(s.nodeOrder, n.ID)
}

func (s *State) addLink(l *model.Link) {
	k := l.Key()
	s.links[k] = l
	s.linkOrder = append(s.linkOrder, k)
}

// removeNode deletes a node and every link touching it.
func (s *State) removeNode(id string) {
	if _, ok := s.nodes[id]; !ok {
		return
	}
	delete(s.nodes, id)
	s.nodeOrder = without(s.nodeOrder, id)

	kept := s.linkOrder[:0]
	for _, k := range s.linkOrder {
		l := s.links[k]
		if l.SourceID == id || l.TargetID == id {
			delete(s.links, k)
			continue
		}
		kept = append(kept, k)
	}
	s.linkOrder = kept
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// IDs returns the ids of live (non-exiting, non-target) guess nodes.
func (s *State) IDs() []string {
	out := make([]string, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.IsTarget || n.Exiting() {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Node returns the live pointer for id. Callers must stay on the owning goroutine.
func (s *State) Node(id string) (*model.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns node pointers in insertion order.
func (s *State) Nodes() []*model.Node {
	out := make([]*model.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// Links returns link pointers in insertion order.
func (s *State) Links() []*model.Link {
	out := make([]*model.Link, 0, len(s.linkOrder))
	for _, k := range s.linkOrder {
		out = append(out, s.links[k])
	}
	return out
}

// MarkExiting starts the exit transition of a node and its links.
func (s *State) MarkExiting(id string) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	now := s.clock.Now()
	if !n.Exiting() {
		n.ExitingSince = now
	}
	n.Pin = nil
	n.IsNew = false
	n.Vel = model.Vec{}
	for _, l := range s.links {
		if (l.SourceID == id || l.TargetID == id) && !l.Exiting() {
			l.ExitingSince = now
		}
	}
	return nil
}

// Remove physically deletes an exiting node together with its links.
// A node that was restored in the meantime is left alone.
func (s *State) Remove(id string) bool {
	n, ok := s.nodes[id]
	if !ok || !n.Exiting() {
		return false
	}
	s.removeNode(id)
	return true
}

// PurgeLinks deletes links whose exit started at or before cutoff.
func (s *State) PurgeLinks(cutoff time.Time) int {
	removed := 0
	kept := s.linkOrder[:0]
	for _, k := range s.linkOrder {
		l := s.links[k]
		if l.Exiting() && !l.ExitingSince.After(cutoff) {
			delete(s.links, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	s.linkOrder = kept
	return removed
}

// SetNew sets the isNew flag of a node.
func (s *State) SetNew(id string, v bool) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	n.IsNew = v
	return nil
}

// SetPin fixes a node at p, or releases it when p is nil.
func (s *State) SetPin(id string, p *model.Vec) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	if p != nil && n.Exiting() {
		return ErrNodeExiting
	}
	if p == nil {
		n.Pin = nil
		return nil
	}
	pin := *p
	n.Pin = &pin
	return nil
}

// Counts returns node, link, exiting and pinned totals.
func (s *State) Counts() (nodes, links, exiting, pinned int) {
	for _, n := range s.nodes {
		if n.Exiting() {
			exiting++
		}
		if n.Pinned() {
			pinned++
		}
	}
	return len(s.nodes), len(s.links), exiting, pinned
}

// Get returns a deep copy of the graph.
func (s *State) Get() View {
	v := View{
		TargetID: s.targetID,
		Nodes:    make([]model.Node, 0, len(s.nodeOrder)),
		Links:    make([]model.Link, 0, len(s.linkOrder)),
	}
	for _, id := range s.nodeOrder {
		n := *s.nodes[id]
		if n.Pin != nil {
			p := *n.Pin
			n.Pin = &p
		}
		v.Nodes = append(v.Nodes, n)
	}
	for _, k := range s.linkOrder {
		v.Links = append(v.Links, *s.links[k])
	}
	return v
}
