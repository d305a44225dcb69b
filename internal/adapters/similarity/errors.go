package similarity

import "errors"

// Sentinel errors shared by every Client implementation.
var (
	ErrNoRound        = errors.New("no target word set")
	ErrAlreadyGuessed = errors.New("already guessed")
	ErrInvalidWord    = errors.New("invalid word")
	ErrUnknownModel   = errors.New("unknown similarity model")
	ErrUnavailable    = errors.New("similarity service unavailable")
)
