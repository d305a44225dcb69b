package interaction

import "errors"

var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrNotDragging  = errors.New("node is not being dragged")
	ErrInvalidScale = errors.New("zoom factor must be positive")
	ErrNonFinite    = errors.New("view coordinates out of range")
)
