package clock

import (
	"time"

	internalclock "github.com/SmitUplenchwar2687/meshflow/internal/clock"
)

// Clock abstracts time so the animation loop works with real and virtual time.
type Clock = internalclock.Clock

// RealClock delegates to the standard time package.
type RealClock = internalclock.RealClock

// VirtualClock is a manually driven clock for stepping frames in tests.
type VirtualClock = internalclock.VirtualClock

// NewRealClock creates a real wall-clock implementation.
func NewRealClock() *RealClock {
	return internalclock.NewRealClock()
}

// NewVirtualClock creates a virtual clock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return internalclock.NewVirtualClock(start)
}

// FrameInterval returns the tick period for a target frame rate.
func FrameInterval(fps int) time.Duration {
	return internalclock.FrameInterval(fps)
}
