package similarity

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Lexical models understood by InMemoryClient.
const (
	ModelBigram  = "bigram"
	ModelTrigram = "trigram"
)

const (
	defaultMinLatency = 0
	defaultMaxLatency = 0
	defaultRandomSeed = 42
)

// MemoryOption applies a configuration option to the InMemoryClient.
type MemoryOption func(*InMemoryClient)

// WithLatencyRange sets the simulated collaborator latency.
func WithLatencyRange(minLatency, maxLatency time.Duration) MemoryOption {
	return func(c *InMemoryClient) {
		if minLatency >= 0 && maxLatency >= minLatency {
			c.minLatency = minLatency
			c.maxLatency = maxLatency
		}
	}
}

// WithModel sets the initial lexical model.
func WithModel(name string) MemoryOption {
	return func(c *InMemoryClient) {
		if _, ok := ngramSize[name]; ok {
			c.model = name
		}
	}
}

var ngramSize = map[string]int{
	ModelBigram:  2,
	ModelTrigram: 3,
}

// InMemoryClient is an offline collaborator. Scores are n-gram overlap
// between spellings, not semantic similarity; they are deterministic,
// symmetric and 100 for identical words, which is all the engine needs.
type InMemoryClient struct {
	mu      sync.Mutex
	target  string
	guesses []string
	model   string

	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand
}

// NewInMemoryClient creates an InMemoryClient.
func NewInMemoryClient(opts ...MemoryOption) *InMemoryClient {
	c := &InMemoryClient{
		model:      ModelBigram,
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // reproducible latency
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetWord starts a new round.
func (c *InMemoryClient) SetWord(ctx context.Context, word string) error {
	w := model.NormalizeWord(word)
	if w == "" {
		return ErrInvalidWord
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = w
	c.guesses = nil
	return nil
}

// Guess records word and scores the whole round.
func (c *InMemoryClient) Guess(ctx context.Context, word string) (Result, error) {
	w := model.NormalizeWord(word)
	if w == "" {
		return Result{}, ErrInvalidWord
	}
	if err := c.wait(ctx); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == "" {
		return Result{}, ErrNoRound
	}
	for _, g := range c.guesses {
		if g == w {
			return Result{}, ErrAlreadyGuessed
		}
	}
	c.guesses = append(c.guesses, w)

	r := c.resultLocked()
	r.Word = w
	r.Score = c.score(w, c.target)
	r.Found = w == c.target
	r.Feedback = Feedback(r.Score)
	if r.Found {
		r.Secret = c.target
	}
	return r, nil
}

// Hint gives the word length, then one, two and three leading letters as
// the guess count passes 10, 20 and 30.
func (c *InMemoryClient) Hint(ctx context.Context) (Hint, error) {
	if err := c.wait(ctx); err != nil {
		return Hint{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == "" {
		return Hint{}, ErrNoRound
	}
	n := len(c.guesses)
	t := []rune(c.target)
	var text string
	switch {
	case n < 10:
		text = fmt.Sprintf("The word has %d letters", len(t))
	case n < 20:
		text = fmt.Sprintf("The word starts with '%s'", prefix(t, 1))
	case n < 30:
		text = fmt.Sprintf("The word starts with '%s'", prefix(t, 2))
	default:
		text = fmt.Sprintf("The word is '%s...'", prefix(t, 3))
	}
	return Hint{Text: text, GuessCount: n}, nil
}

// Rescore switches the lexical model and rescores every guess.
func (c *InMemoryClient) Rescore(ctx context.Context, modelName string) (Result, error) {
	if err := c.wait(ctx); err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == "" {
		return Result{}, ErrNoRound
	}
	if modelName != "" {
		if _, ok := ngramSize[modelName]; !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownModel, modelName)
		}
		c.model = modelName
	}
	r := c.resultLocked()
	for _, g := range c.guesses {
		if g == c.target {
			r.Found = true
			r.Secret = c.target
		}
	}
	return r, nil
}

func (c *InMemoryClient) resultLocked() Result {
	r := Result{
		GuessCount: len(c.guesses),
		Model:      c.model,
		Scores:     make([]model.Guess, 0, len(c.guesses)),
	}
	for i, a := range c.guesses {
		r.Scores = append(r.Scores, model.Guess{Word: a, Score: c.score(a, c.target)})
		for _, b := range c.guesses[i+1:] {
			r.Pairs = append(r.Pairs, model.Pair{A: a, B: b, Similarity: c.score(a, b)})
		}
	}
	return r
}

func (c *InMemoryClient) score(a, b string) float64 {
	if a == b {
		return model.MaxScore
	}
	return math.Round(dice(ngrams(a, ngramSize[c.model]), ngrams(b, ngramSize[c.model])) * model.MaxScore)
}

// wait simulates collaborator latency, honoring ctx.
func (c *InMemoryClient) wait(ctx context.Context) error {
	if c.maxLatency <= 0 {
		return ctx.Err()
	}
	c.mu.Lock()
	latency := c.minLatency
	if span := int64(c.maxLatency - c.minLatency); span > 0 {
		latency += time.Duration(c.rng.Int63n(span))
	}
	c.mu.Unlock()

	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// ngrams returns the multiset of padded n-grams of w.
func ngrams(w string, n int) map[string]int {
	r := []rune("^" + w + "$")
	out := make(map[string]int)
	for i := 0; i+n <= len(r); i++ {
		out[string(r[i:i+n])]++
	}
	return out
}

// dice is the Sorensen-Dice coefficient of two n-gram multisets.
func dice(a, b map[string]int) float64 {
	var total, shared int
	for g, n := range a {
		total += n
		if m, ok := b[g]; ok {
			shared += min(n, m)
		}
	}
	for _, n := range b {
		total += n
	}
	if total == 0 {
		return 0
	}
	return 2 * float64(shared) / float64(total)
}

func prefix(r []rune, n int) string {
	if n > len(r) {
		n = len(r)
	}
	return string(r[:n])
}
