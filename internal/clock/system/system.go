// Package system provides clock implementations.
package system

import "time"

// Clock implements tracker.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock frozen at a single instant, used to make feed output reproducible.
type Fixed struct {
	At time.Time
}

// Now returns the frozen instant in UTC.
func (f Fixed) Now() time.Time {
	return f.At.UTC()
}
