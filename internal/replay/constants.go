package replay

import "time"

// Runner defaults.
const (
	DefaultMaxTicks = 3000
	frameInterval   = 16 * time.Millisecond
	tickWait        = 50 * time.Millisecond
)

// Report color bands.
const (
	hotScore  = 70
	warmScore = 40
)
