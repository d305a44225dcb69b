package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	changed, err := store.Upsert(ctx, "Lake", 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Error("expected first upsert to change the store")
	}

	entry, err := store.Rank(ctx, "lake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 90 || entry.Word != "lake" {
		t.Errorf("unexpected entry %+v", entry)
	}

	if _, err := store.Rank(ctx, "ocean"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Upsert(ctx, "  ", 10); !errors.Is(err, ErrInvalidWord) {
		t.Errorf("expected ErrInvalidWord, got %v", err)
	}
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	for _, g := range []struct {
		word  string
		score float64
	}{{"ocean", 12}, {"river", 55}, {"lake", 90}, {"pond", 55}, {"sea", 150}} {
		if _, err := store.Upsert(ctx, g.word, g.score); err != nil {
			t.Fatal(err)
		}
	}

	top, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sea", "lake", "pond", "river", "ocean"}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, e := range top {
		if e.Word != want[i] || e.Rank != i+1 {
			t.Errorf("position %d: got %+v, want %s", i, e, want[i])
		}
	}
	if top[0].Score != 100 {
		t.Errorf("expected clamped score 100, got %v", top[0].Score)
	}

	top, _ = store.TopN(ctx, 2)
	if len(top) != 2 || top[1].Word != "lake" {
		t.Errorf("TopN(2) = %+v", top)
	}
	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStore_Rescore(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()
	_, _ = store.Upsert(ctx, "ocean", 12)
	_, _ = store.Upsert(ctx, "lake", 90)

	changed, _ := store.Upsert(ctx, "ocean", 12)
	if changed {
		t.Error("same score should not count as a change")
	}

	// A rescore can lower a word as well as raise it.
	_, _ = store.Upsert(ctx, "lake", 5)
	e, _ := store.Rank(ctx, "lake")
	if e.Rank != 2 || e.Score != 5 {
		t.Errorf("rescored entry = %+v", e)
	}
	if store.Count(ctx) != 2 {
		t.Errorf("rescoring must not duplicate, count=%d", store.Count(ctx))
	}

	store.Reset(ctx)
	if store.Count(ctx) != 0 {
		t.Error("reset should clear the history")
	}
	if top, _ := store.TopN(ctx, 5); len(top) != 0 {
		t.Errorf("reset store returned %v", top)
	}
}

func TestTreapStore_MatchesSort(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithMaxLimit(5000))
	rng := rand.New(rand.NewSource(7))
	scores := make(map[string]float64)

	for i := 0; i < 3000; i++ {
		w := fmt.Sprintf("w%d", rng.Intn(800))
		s := float64(rng.Intn(101))
		scores[w] = s
		if _, err := store.Upsert(ctx, w, s); err != nil {
			t.Fatal(err)
		}
	}

	type pair struct {
		w string
		s float64
	}
	var want []pair
	for w, s := range scores {
		want = append(want, pair{w, s})
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].s != want[j].s {
			return want[i].s > want[j].s
		}
		return want[i].w < want[j].w
	})

	top, err := store.TopN(ctx, len(want))
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if top[i].Word != want[i].w || top[i].Score != want[i].s {
			t.Fatalf("position %d: got %+v, want %+v", i, top[i], want[i])
		}
		e, _ := store.Rank(ctx, want[i].w)
		if e.Rank != i+1 {
			t.Fatalf("rank of %s = %d, want %d", want[i].w, e.Rank, i+1)
		}
	}
}

func TestTreapStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, _ = store.Upsert(ctx, fmt.Sprintf("w%d", i), float64((i*g)%100))
				_, _ = store.TopN(ctx, 10)
			}
		}(g)
	}
	wg.Wait()
	if store.Count(ctx) != 200 {
		t.Errorf("expected 200 words, got %d", store.Count(ctx))
	}
}

func BenchmarkTreapStore_Upsert(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore()
	words := make([]string, 1024)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Upsert(ctx, words[i%len(words)], float64(i%101))
	}
}
