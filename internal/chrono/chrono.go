// Package chrono provides a monotonic stopwatch for measuring elapsed
// playback intervals in milliseconds.
package chrono

import "time"

// Chrono measures elapsed time since a reference instant. time.Time values
// obtained from time.Now carry a monotonic clock reading, so Elapsed is not
// affected by system clock adjustments.
type Chrono struct {
	ref time.Time
}

// New creates a Chrono with the reference instant set to now.
func New() *Chrono {
	return &Chrono{ref: time.Now()}
}

// Mark resets the reference instant to now.
func (c *Chrono) Mark() {
	c.ref = time.Now()
}

// Elapsed returns the number of milliseconds since the last Mark, or since
// construction if Mark was never called. The result is never negative.
func (c *Chrono) Elapsed() int64 {
	ms := time.Since(c.ref).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
