// Package sim simulates a TR module and virtual time for tests and demos.
package sim

import (
	"sync"
	"time"
)

// DefaultStep is the virtual time consumed by one clock read.
const DefaultStep = 10 * time.Microsecond

// Clock is a virtual hal.Clock. Every Now call advances time by Step,
// modelling the time code needs to run between two reads, and Sleep
// advances by its argument without blocking.
type Clock struct {
	Step time.Duration

	lock sync.Mutex
	now  time.Duration
}

// NewClock creates a Clock advancing step per read.
func NewClock(step time.Duration) *Clock {
	return &Clock{Step: step}
}

// Now implements hal.Clock.
func (c *Clock) Now() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += c.Step
	return c.now
}

// Sleep implements hal.Clock.
func (c *Clock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now += d
	c.lock.Unlock()
}

// Elapsed returns the current virtual time without advancing it.
func (c *Clock) Elapsed() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}
