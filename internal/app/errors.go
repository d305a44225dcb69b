package app

import "errors"

// Errors returned by the Engine command interface.
var (
	ErrEngineStopped           = errors.New("engine not running")
	ErrEngineBusy              = errors.New("engine command queue full")
	ErrNoRound                 = errors.New("no round in progress")
	ErrAlreadyGuessed          = errors.New("word already guessed")
	ErrInvalidWord             = errors.New("invalid word")
	ErrCollaboratorUnavailable = errors.New("similarity collaborator unavailable")
	ErrStaleResponse           = errors.New("response belongs to a previous round")
	ErrInvalidViewport         = errors.New("viewport must be positive")
	ErrCommandFailed           = errors.New("engine command failed")
)
