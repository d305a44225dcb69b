package repository

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/metrics"
)

const defaultMaxLimit = 1000

// Ordering is score DESC, then word ASC, so in-order traversal yields the
// history best first and ties are deterministic. Priorities are a hash of
// the word: the tree shape depends only on its contents, never on insert
// order or a random source.

type node struct {
	word  string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func size(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) fix() { n.size = 1 + size(n.left) + size(n.right) }

func before(aScore float64, aWord string, bScore float64, bWord string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aWord < bWord
}

func priority(word string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left, x.right = x.right, y
	y.fix()
	x.fix()
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right, y.left = y.left, x
	x.fix()
	y.fix()
	return y
}

func insert(n *node, word string, score float64) *node {
	if n == nil {
		return &node{word: word, score: score, prio: priority(word), size: 1}
	}
	if before(score, word, n.score, n.word) {
		n.left = insert(n.left, word, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, word, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	n.fix()
	return n
}

func remove(n *node, word string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.word == word && n.score == score:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, word, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, word, score)
		}
	case before(score, word, n.score, n.word):
		n.left = remove(n.left, word, score)
	default:
		n.right = remove(n.right, word, score)
	}
	n.fix()
	return n
}

// position returns the zero-based in-order index of (word, score).
func position(n *node, word string, score float64) int {
	pos := 0
	for n != nil {
		if n.word == word && n.score == score {
			return pos + size(n.left)
		}
		if before(score, word, n.score, n.word) {
			n = n.left
		} else {
			pos += size(n.left) + 1
			n = n.right
		}
	}
	return -1
}

func collect(n *node, limit int, out *[]model.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, model.Entry{Rank: len(*out) + 1, Word: n.word, Score: n.score})
	}
	collect(n.right, limit, out)
}

// TreapStore is an in-memory Store ordered by an order-statistic treap.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	scores   map[string]float64
	maxLimit int
}

// NewTreapStore creates an empty TreapStore.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		scores:   make(map[string]float64),
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert records or rescores word.
func (s *TreapStore) Upsert(_ context.Context, word string, score float64) (bool, error) {
	w := model.NormalizeWord(word)
	if w == "" {
		return false, ErrInvalidWord
	}
	score = model.ClampScore(score)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.scores[w]; ok {
		if old == score {
			return false, nil
		}
		s.root = remove(s.root, w, old)
	}
	s.root = insert(s.root, w, score)
	s.scores[w] = score
	metrics.UpdateHistorySize(len(s.scores))
	return true, nil
}

// Rank returns the entry for word.
func (s *TreapStore) Rank(_ context.Context, word string) (model.Entry, error) {
	w := model.NormalizeWord(word)
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[w]
	if !ok {
		return model.Entry{}, ErrNotFound
	}
	return model.Entry{Rank: position(s.root, w, score) + 1, Word: w, Score: score}, nil
}

// TopN returns the best n entries.
func (s *TreapStore) TopN(_ context.Context, n int) ([]model.Entry, error) {
	if n <= 0 || n > s.maxLimit {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Entry, 0, min(n, size(s.root)))
	collect(s.root, n, &out)
	return out, nil
}

// Count returns the number of words in the history.
func (s *TreapStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// Reset clears the history.
func (s *TreapStore) Reset(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = nil
	s.scores = make(map[string]float64)
	metrics.UpdateHistorySize(0)
}
