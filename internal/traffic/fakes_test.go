package traffic

import (
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeEdge is a host edge whose attributes tests set directly.
type fakeEdge struct {
	id       string
	metrics  Metrics
	protocol Protocol
	dimmed   bool
	from, to canvas.Vec
	color    string

	endpointsErr error
	panics       bool
}

func newFakeEdge(id string, rate, latency, percentErr float64) *fakeEdge {
	return &fakeEdge{
		id:       id,
		metrics:  Metrics{Rate: rate, Latency: latency, PercentErr: percentErr},
		protocol: ProtocolHTTP,
		from:     canvas.Vec{X: 0, Y: 0},
		to:       canvas.Vec{X: 100, Y: 0},
		color:    "#3f9c35",
	}
}

func (e *fakeEdge) ID() string         { return e.id }
func (e *fakeEdge) Metrics() Metrics   { return e.metrics }
func (e *fakeEdge) Protocol() Protocol { return e.protocol }
func (e *fakeEdge) Dimmed() bool       { return e.dimmed }
func (e *fakeEdge) Color() string      { return e.color }

func (e *fakeEdge) Endpoints() (canvas.Vec, canvas.Vec, error) {
	if e.panics {
		panic("edge " + e.id + " vanished")
	}
	if e.endpointsErr != nil {
		return canvas.Vec{}, canvas.Vec{}, e.endpointsErr
	}
	return e.from, e.to, nil
}

// fixedRand always returns the same value.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// manualClock never fires After, so frames only run through ProcessStep.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: epoch}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *manualClock) After(time.Duration) <-chan time.Time {
	return nil
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
