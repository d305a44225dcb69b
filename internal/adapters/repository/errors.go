package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound     = errors.New("word not in history")
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrInvalidWord  = errors.New("invalid word")
)
