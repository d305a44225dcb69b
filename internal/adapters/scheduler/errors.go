package scheduler

import "errors"

// ErrShutdownTimeout is returned when the loop does not exit in time.
var ErrShutdownTimeout = errors.New("loop shutdown timed out")
