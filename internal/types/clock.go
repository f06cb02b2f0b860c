package types

import "time"

// Clock provides the current time. Domain code that depends on "now"
// (invoice date validation, invoice number generation) takes a Clock so
// tests can fix the wall clock deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// NewClock returns a Clock backed by the system wall clock in UTC.
func NewClock() Clock {
	return realClock{}
}

// FixedClock is a Clock pinned to a single instant, for tests.
type FixedClock struct {
	Time time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.Time
}

// NewFixedClock returns a Clock pinned to the given instant.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{Time: t.UTC()}
}

// Advance moves the pinned instant forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.Time = c.Time.Add(d)
}
