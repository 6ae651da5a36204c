// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually driven clock. Pass its Now method wherever production
// code accepts a func() time.Time.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// ReferenceTime is the default FakeClock time: Sun, 06 Nov 1994 08:49:37 GMT.
var ReferenceTime = time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)

// NewFakeClock creates a FakeClock at initial, or at ReferenceTime if initial is zero.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = ReferenceTime
	}
	return &FakeClock{current: initial}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set sets the fake time to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
