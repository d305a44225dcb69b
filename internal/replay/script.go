// Package replay drives a headless engine through a scripted game and
// reports where the layout came to rest.
package replay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Sentinel errors for script loading and runs.
var (
	ErrInvalidScript = errors.New("invalid replay script")
	ErrNotSettled    = errors.New("layout did not settle")
	ErrVerify        = errors.New("layout verification failed")
)

// Script is a replay file.
type Script struct {
	Variant  string  `toml:"variant"`
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	MaxTicks int     `toml:"max_ticks"`
	Rounds   []Round `toml:"round"`
}

// Round is one hidden word and what happens to it. Guesses go through the
// in-memory collaborator; snapshots are merged as given; Model, when set,
// rescores at the end of the round.
type Round struct {
	Word      string     `toml:"word"`
	Guesses   []string   `toml:"guesses"`
	Snapshots []Snapshot `toml:"snapshot"`
	Model     string     `toml:"model"`
}

// Snapshot is a literal snapshot in a script.
type Snapshot struct {
	Guesses []model.Guess `toml:"guesses"`
	Pairs   []model.Pair  `toml:"pairs"`
	Partial bool          `toml:"partial"`
}

// Load reads and validates a TOML script.
func Load(path string) (*Script, error) {
	var s Script
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScript, path, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Parse decodes a script held in memory.
func Parse(data string) (*Script, error) {
	var s Script
	if _, err := toml.Decode(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) validate() error {
	if len(s.Rounds) == 0 {
		return fmt.Errorf("%w: no rounds", ErrInvalidScript)
	}
	for i, r := range s.Rounds {
		if strings.TrimSpace(r.Word) == "" {
			return fmt.Errorf("%w: round %d has no word", ErrInvalidScript, i+1)
		}
		if len(r.Guesses) == 0 && len(r.Snapshots) == 0 {
			return fmt.Errorf("%w: round %d has neither guesses nor snapshots", ErrInvalidScript, i+1)
		}
	}
	if s.Width < 0 || s.Height < 0 || s.MaxTicks < 0 {
		return fmt.Errorf("%w: negative size or tick budget", ErrInvalidScript)
	}
	return nil
}
