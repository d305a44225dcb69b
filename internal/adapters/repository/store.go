// Package repository keeps the ranked guess history of the current round.
package repository

import (
	"context"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Store provides read/write access to the guess history.
type Store interface {
	// Upsert records word with score, replacing an earlier score for the same
	// word. It reports whether anything changed.
	Upsert(ctx context.Context, word string, score float64) (bool, error)

	// Rank returns the rank and score of word. It returns ErrNotFound if the
	// word was never guessed this round.
	Rank(ctx context.Context, word string) (model.Entry, error)

	// TopN returns up to n entries, best first.
	TopN(ctx context.Context, n int) ([]model.Entry, error)

	// Count returns the number of distinct words.
	Count(ctx context.Context) int

	// Reset drops the whole history.
	Reset(ctx context.Context)
}
