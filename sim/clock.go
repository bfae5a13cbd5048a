package sim

import (
	"sync"
	"time"
)

// Clock reports elapsed time since a fixed epoch. It must be monotonic.
type Clock interface {
	Since() time.Duration
}

// WallClock measures from its creation using the monotonic wall clock.
type WallClock struct {
	epoch time.Time
}

// NewWallClock starts a clock at now.
func NewWallClock() *WallClock {
	return &WallClock{epoch: time.Now()}
}

func (c *WallClock) Since() time.Duration {
	return time.Since(c.epoch)
}

// ManualClock advances only when told to. Used for fixed-step runs.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// Add moves the clock forward by d.
func (c *ManualClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func (c *ManualClock) Since() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
