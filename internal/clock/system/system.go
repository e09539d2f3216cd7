// Package system provides the wall clock.
package system

import "time"

// Clock implements archive.Clock using the system time.
type Clock struct{}

// New returns a system clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return time.Now()
}
