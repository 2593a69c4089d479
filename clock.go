package leasecache

import (
	"sync"
	"time"
)

// Clock supplies the cache's notion of "now". The default is the wall clock;
// tests install a ManualClock through Cache.SetClock to drive expiry
// deterministically.
type Clock interface {
	Now() time.Time
}

// WallClock reads time.Now. It is the clock every cache starts with.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// ManualClock is a settable Clock for tests. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
