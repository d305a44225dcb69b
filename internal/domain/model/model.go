// Package model contains the graph data model shared between the engine layers.
package model

import (
	"math"
	"strings"
	"time"
)

// HiddenTargetID identifies the target node while the secret word is unknown to the client.
const HiddenTargetID = "TARGET"

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Node is a single vertex of the visualization graph.
type Node struct {
	ID       string
	Score    float64 // similarity to the target, clamped to [0,100]
	IsTarget bool
	IsNew    bool
	Pos      Vec
	Vel      Vec
	Pin      *Vec // non-nil while dragged

	EnteredAt    time.Time
	ExitingSince time.Time // zero while live
}

// Exiting reports whether the node is playing its exit transition.
func (n *Node) Exiting() bool { return !n.ExitingSince.IsZero() }

// Pinned reports whether the node position is fixed by interaction.
func (n *Node) Pinned() bool { return n.Pin != nil }

// Link is an undirected edge between two nodes.
type Link struct {
	SourceID   string
	TargetID   string
	Weight     float64 // similarity on the same 0–100 scale as node scores
	IsToTarget bool

	EnteredAt    time.Time
	ExitingSince time.Time
}

// Key returns the unordered identity of the link.
func (l *Link) Key() string { return PairKey(l.SourceID, l.TargetID) }

// Exiting reports whether the link is playing its exit transition.
func (l *Link) Exiting() bool { return !l.ExitingSince.IsZero() }

// Guess is one scored word in a snapshot.
type Guess struct {
	Word  string  `json:"word" toml:"word"`
	Score float64 `json:"score" toml:"score"`
}

// Pair is a pairwise similarity between two guessed words.
type Pair struct {
	A          string  `json:"a" toml:"a"`
	B          string  `json:"b" toml:"b"`
	Similarity float64 `json:"similarity" toml:"similarity"`
}

// Snapshot is the complete (or, when Partial, incremental) input for one merge.
type Snapshot struct {
	Generation uint64
	TargetID   string // empty means HiddenTargetID
	Guesses    []Guess
	Pairs      []Pair
	Partial    bool
}

// Target returns the id used for the target node.
func (s *Snapshot) Target() string {
	if s.TargetID == "" {
		return HiddenTargetID
	}
	return s.TargetID
}

// Entry is one row of the ranked guess history.
type Entry struct {
	Rank  int     `json:"rank"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

const pairSep = "|"

// PairKey returns a key that is identical for (a,b) and (b,a).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + pairSep + b
}

// SplitPairKey reverses PairKey.
func SplitPairKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, pairSep)
	return a, b, ok
}

// ClampScore maps any float into [MinScore, MaxScore]; NaN becomes MinScore.
func ClampScore(s float64) float64 {
	switch {
	case math.IsNaN(s), s < MinScore:
		return MinScore
	case s > MaxScore:
		return MaxScore
	default:
		return s
	}
}

// NormalizeWord lowercases and trims a guessed word.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
