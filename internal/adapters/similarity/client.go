// Package similarity talks to the collaborator that owns the hidden word and
// scores guesses against it.
package similarity

import (
	"context"
	"sort"
	"strings"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Client is the collaborator contract. Implementations must be safe for
// concurrent use.
type Client interface {
	// SetWord starts a new round with the given hidden word.
	SetWord(ctx context.Context, word string) error
	// Guess scores word and returns every guess of the round with pairwise
	// similarities.
	Guess(ctx context.Context, word string) (Result, error)
	// Hint returns a progressive hint for the current round.
	Hint(ctx context.Context) (Hint, error)
	// Rescore recomputes every score of the round with another model.
	Rescore(ctx context.Context, modelName string) (Result, error)
}

// Result is the collaborator's view of a round after a guess or rescore.
type Result struct {
	Word       string
	Score      float64
	Found      bool
	Feedback   string
	GuessCount int
	Secret     string
	Model      string
	Scores     []model.Guess
	Pairs      []model.Pair
}

// Snapshot converts r into a full snapshot. Once the word is found the
// target node takes the secret as its id.
func (r Result) Snapshot() model.Snapshot {
	s := model.Snapshot{
		Guesses: append([]model.Guess(nil), r.Scores...),
		Pairs:   append([]model.Pair(nil), r.Pairs...),
	}
	if r.Found && r.Secret != "" {
		s.TargetID = r.Secret
	}
	return s
}

// Hint is a clue about the hidden word.
type Hint struct {
	Text       string `json:"hint"`
	GuessCount int    `json:"guess_count"`
}

// Feedback returns the temperature message for a score.
func Feedback(score float64) string {
	switch {
	case score >= 100:
		return "Congratulations! You found the word!"
	case score >= 80:
		return "Very hot! Extremely similar!"
	case score >= 70:
		return "Hot! Very close!"
	case score >= 60:
		return "Warm. Getting closer."
	case score >= 50:
		return "Lukewarm. Somewhat related."
	case score >= 40:
		return "Cool. Keep trying."
	case score >= 30:
		return "Cold. Different direction."
	default:
		return "Freezing! Very unrelated."
	}
}

// ParsePairKeys decodes a map keyed "word1-word2". Words may contain
// hyphens themselves, so each key is split at the first hyphen whose two
// sides are both known words. Keys that cannot be resolved are returned
// in unresolved.
func ParsePairKeys(sims map[string]float64, known []string) (pairs []model.Pair, unresolved []string) {
	set := make(map[string]struct{}, len(known))
	for _, w := range known {
		set[w] = struct{}{}
	}

	keys := make([]string, 0, len(sims))
	for k := range sims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		a, b, ok := splitKnown(k, set)
		if !ok {
			unresolved = append(unresolved, k)
			continue
		}
		pairs = append(pairs, model.Pair{A: a, B: b, Similarity: sims[k]})
	}
	return pairs, unresolved
}

func splitKnown(key string, known map[string]struct{}) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] != '-' {
			continue
		}
		a, b := key[:i], key[i+1:]
		_, okA := known[a]
		_, okB := known[b]
		if okA && okB {
			return a, b, true
		}
	}
	// Without a known-word list fall back to the first hyphen.
	if len(known) == 0 {
		if a, b, ok := strings.Cut(key, "-"); ok && a != "" && b != "" {
			return a, b, true
		}
	}
	return "", "", false
}
