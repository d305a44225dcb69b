package similarity

import (
	"testing"

	"github.com/okian/wordgraph/internal/domain/model"
)

func TestParsePairKeys(t *testing.T) {
	tests := []struct {
		name       string
		sims       map[string]float64
		known      []string
		want       []model.Pair
		unresolved int
	}{
		{
			name:  "plain words",
			sims:  map[string]float64{"cat-dog": 70},
			known: []string{"cat", "dog"},
			want:  []model.Pair{{A: "cat", B: "dog", Similarity: 70}},
		},
		{
			name:  "hyphenated word",
			sims:  map[string]float64{"ice-cream-cone": 40},
			known: []string{"ice-cream", "cone"},
			want:  []model.Pair{{A: "ice-cream", B: "cone", Similarity: 40}},
		},
		{
			name:       "unknown word",
			sims:       map[string]float64{"cat-fox": 10},
			known:      []string{"cat", "dog"},
			unresolved: 1,
		},
		{
			name: "no known words",
			sims: map[string]float64{"a-b": 5},
			want: []model.Pair{{A: "a", B: "b", Similarity: 5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unresolved := ParsePairKeys(tt.sims, tt.known)
			if len(unresolved) != tt.unresolved {
				t.Fatalf("unresolved = %v, want %d", unresolved, tt.unresolved)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("pairs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pair %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFeedback(t *testing.T) {
	if Feedback(100) != "Congratulations! You found the word!" {
		t.Error("100 should congratulate")
	}
	if Feedback(85) == Feedback(10) {
		t.Error("hot and freezing should differ")
	}
}

func TestResultSnapshot(t *testing.T) {
	r := Result{
		Scores: []model.Guess{{Word: "ocean", Score: 12}},
		Found:  true,
		Secret: "lake",
	}
	s := r.Snapshot()
	if s.Target() != "lake" {
		t.Errorf("target = %q, want lake", s.Target())
	}
	r.Found = false
	s = r.Snapshot()
	if s.Target() != model.HiddenTargetID {
		t.Errorf("target = %q, want hidden", s.Target())
	}
}
