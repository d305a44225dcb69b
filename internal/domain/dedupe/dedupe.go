// Package dedupe remembers which words were already guessed in the current
// round so repeats are rejected before they reach the collaborator.
package dedupe

import (
	"container/list"
	"context"
	"sync"

	"github.com/okian/wordgraph/internal/domain/model"
)

const defaultMaxSize = 10000

// Deduper records seen guesses.
type Deduper interface {
	// SeenAndRecord atomically checks whether word was seen and records it if
	// not. It returns true for a repeat.
	SeenAndRecord(ctx context.Context, word string) bool

	// Unrecord forgets word, used when the collaborator rejected or failed
	// the guess so the player may retry it.
	Unrecord(ctx context.Context, word string)

	// Reset forgets every word; called when a new round starts.
	Reset(ctx context.Context)

	Size() int
}

// inMemoryDeduper keeps words in insertion order so that, once maxSize is
// reached, the oldest entry is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, word string) bool {
	w := model.NormalizeWord(word)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[w]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, oldest.Value.(string))
			d.order.Remove(oldest)
		}
	}
	d.seen[w] = d.order.PushBack(w)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, word string) {
	w := model.NormalizeWord(word)
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[w]; ok {
		d.order.Remove(e)
		delete(d.seen, w)
	}
}

func (d *inMemoryDeduper) Reset(context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]*list.Element)
	d.order.Init()
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
