package testutil

import "time"

// Epoch is the first instant a DeterministicClock returns.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock hands out Epoch, Epoch+Step, Epoch+2*Step, ... so runs
// recorded in a test get distinct, reproducible start times.
type DeterministicClock struct {
	n    int64
	Step time.Duration
}

// NewDeterministicClock creates a clock stepping one second per call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{Step: time.Second}
}

// Now returns the next instant.
func (c *DeterministicClock) Now() time.Time {
	t := Epoch.Add(time.Duration(c.n) * c.Step)
	c.n++
	return t
}
