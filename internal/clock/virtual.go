package clock

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// VirtualClock only moves when told to. Frame loops driven by it wait on
// After and run as soon as Advance or Set crosses their deadline.
type VirtualClock struct {
	mu  sync.RWMutex
	now time.Time
	// timers is ordered by deadline; equal deadlines keep arrival order.
	timers []timer
}

type timer struct {
	at time.Time
	c  chan time.Time
}

// NewVirtualClock returns a VirtualClock reading start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *VirtualClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// After delivers the clock reading once it is at least d past the reading
// at call time. d <= 0 delivers immediately.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}

	at := c.now.Add(d)
	i, _ := slices.BinarySearchFunc(c.timers, at, func(t timer, at time.Time) int {
		if t.at.After(at) {
			return 1
		}
		return -1
	})
	c.timers = slices.Insert(c.timers, i, timer{at: at, c: ch})
	return ch
}

// Pending is the number of After channels still waiting.
func (c *VirtualClock) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.timers)
}

// NextDeadline reports the earliest pending After deadline.
func (c *VirtualClock) NextDeadline() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.timers) == 0 {
		return time.Time{}, false
	}
	return c.timers[0].at, true
}

// Advance moves the clock forward by d. A negative d panics.
func (c *VirtualClock) Advance(d time.Duration) {
	if d < 0 {
		panic(fmt.Sprintf("clock: Advance(%v) would move backwards", d))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveTo(c.now.Add(d))
}

// Set moves the clock to t. A t before the current reading panics.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.now) {
		panic(fmt.Sprintf("clock: Set(%v) is before %v", t, c.now))
	}
	c.moveTo(t)
}

// moveTo requires c.mu. Timers are released in deadline order, each
// receiving the new reading.
func (c *VirtualClock) moveTo(t time.Time) {
	c.now = t
	n := 0
	for n < len(c.timers) && !c.timers[n].at.After(t) {
		c.timers[n].c <- t
		n++
	}
	c.timers = slices.Delete(c.timers, 0, n)
}
