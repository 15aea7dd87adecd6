// Package traffic animates request flow along topology graph edges. Each
// edge emits dots whose rate, speed and color follow its live metrics; a
// Renderer steps and paints all edges once per frame.
package traffic

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/skin"
)

// ErrNotRunning is returned by ProcessStep on a stopped renderer.
var ErrNotRunning = errors.New("traffic: renderer is not running")

// errStale is returned to a loop goroutine that outlived its Start call.
var errStale = errors.New("traffic: stale frame loop")

// Frame summarizes one processed tick.
type Frame struct {
	Seq      uint64        `json:"seq" msgpack:"seq"`
	Time     time.Time     `json:"time" msgpack:"time"`
	Elapsed  time.Duration `json:"elapsed" msgpack:"elapsed"`
	Edges    int           `json:"edges" msgpack:"edges"`
	Points   int           `json:"points" msgpack:"points"`
	Drawn    int           `json:"drawn" msgpack:"drawn"`
	Spawned  int           `json:"spawned" msgpack:"spawned"`
	Finished int           `json:"finished" msgpack:"finished"`
}

// FrameObserver is notified after every successful frame, outside the
// renderer's lock, on the frame loop goroutine or the ProcessStep caller.
// After a Stop and Start the previous loop may still be finishing one
// notification, so an observer can briefly see calls from two goroutines.
// A panicking observer stops the renderer like a failed frame.
type FrameObserver interface {
	ObserveFrame(f Frame)
}

// ObserverFunc adapts a function to FrameObserver.
type ObserverFunc func(Frame)

func (fn ObserverFunc) ObserveFrame(f Frame) { fn(f) }

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clock.Clock) Option {
	return func(r *Renderer) { r.clock = c }
}

// WithRand sets the random source shared by every edge generator.
func WithRand(src RandSource) Option {
	return func(r *Renderer) { r.rand = src }
}

// WithSkin sets the theme. Defaults to skin.Normal().
func WithSkin(s skin.Skin) Option {
	return func(r *Renderer) { r.skin = s }
}

// WithFrameRate sets the target frames per second. Defaults to 60.
func WithFrameRate(fps int) Option {
	return func(r *Renderer) { r.interval = clock.FrameInterval(fps) }
}

// WithViewport sets the host pan/zoom source. Defaults to canvas.Identity.
func WithViewport(v Viewport) Option {
	return func(r *Renderer) { r.viewport = v }
}

// WithObserver adds a frame observer.
func WithObserver(o FrameObserver) Option {
	return func(r *Renderer) { r.observers = append(r.observers, o) }
}

// WithErrorHandler receives the error that stopped the frame loop.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Renderer) { r.onError = fn }
}

// Renderer owns the edge registry and the frame loop. All methods are safe
// for concurrent use; SetEdges and frames are serialized on one mutex.
type Renderer struct {
	surface   canvas.Surface
	clock     clock.Clock
	rand      RandSource
	skin      skin.Skin
	viewport  Viewport
	interval  time.Duration
	observers []FrameObserver
	onError   func(error)

	mu         sync.Mutex
	edges      map[string]*AnimatedEdge
	order      []string
	running    bool
	generation uint64
	stopCh     chan struct{}
	last       time.Time
	hasLast    bool
	seq        uint64
	err        error
}

// New binds a renderer to a surface and an initial edge set. It starts
// stopped.
func New(surface canvas.Surface, edges []Edge, opts ...Option) *Renderer {
	r := &Renderer{
		surface:  surface,
		interval: clock.FrameInterval(60),
		edges:    make(map[string]*AnimatedEdge),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = clock.NewRealClock()
	}
	if r.rand == nil {
		r.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.skin == nil {
		r.skin = skin.Normal()
	}
	if r.viewport == nil {
		r.viewport = fixedViewport(canvas.Identity)
	}
	r.SetEdges(edges)
	return r
}

// SetEdges replaces the edge set. Edges whose id is already registered keep
// their in-flight points and only get new generator params; new ids get a
// fresh AnimatedEdge; ids no longer present are dropped. The first of
// several edges sharing an id wins.
func (r *Renderer) SetEdges(edges []Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setEdgesLocked(edges)
}

// Sync runs fn under the frame lock and installs the edges it returns. A
// host uses it to change its graph and re-register edges without a frame
// observing the graph in between. On error the edge set is unchanged.
func (r *Renderer) Sync(fn func() ([]Edge, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	edges, err := fn()
	if err != nil {
		return err
	}
	r.setEdgesLocked(edges)
	return nil
}

func (r *Renderer) setEdgesLocked(edges []Edge) {
	next := make(map[string]*AnimatedEdge, len(edges))
	order := make([]string, 0, len(edges))
	for _, edge := range edges {
		id := edge.ID()
		if _, dup := next[id]; dup {
			log.WithField("edge", id).Warn("duplicate edge id ignored")
			continue
		}
		ae, ok := r.edges[id]
		if ok {
			ae.SetEdge(edge)
		} else {
			ae = NewAnimatedEdge(edge, NewGenerator(r.rand))
		}
		ae.generator.Configure(ParamsFromMetrics(edge.Metrics(), edge.Protocol()))
		next[id] = ae
		order = append(order, id)
	}

	log.WithFields(log.Fields{
		"edges":   len(order),
		"dropped": countMissing(r.edges, next),
	}).Debug("traffic edges updated")
	r.edges = next
	r.order = order
}

func countMissing(prev, next map[string]*AnimatedEdge) int {
	n := 0
	for id := range prev {
		if _, ok := next[id]; !ok {
			n++
		}
	}
	return n
}

// Start begins the frame loop, restarting it if already running.
func (r *Renderer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.stopLocked()
	}
	r.running = true
	r.err = nil
	r.generation++
	r.stopCh = make(chan struct{})

	// Arm the first frame before the goroutine exists so a virtual clock
	// advanced right after Start always releases it.
	next := r.clock.After(r.interval)
	go r.loop(r.generation, r.stopCh, next)

	log.WithField("interval", r.interval).Debug("traffic renderer started")
}

// Stop cancels the frame loop, clears the surface and forgets the previous
// frame time. Safe to call when stopped.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.stopLocked()
	log.Debug("traffic renderer stopped")
}

func (r *Renderer) stopLocked() {
	if !r.running {
		return
	}
	r.running = false
	close(r.stopCh)
	r.stopCh = nil
	r.hasLast = false
	r.surface.Clear()
}

// Clear wipes the surface and drops every in-flight point. Registered edges
// and their generators are kept.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface.Clear()
	for _, ae := range r.edges {
		ae.ClearPoints()
	}
}

// IsRunning reports whether the frame loop is active.
func (r *Renderer) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Err returns the error that last stopped the loop, if any. Start resets it.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Interval returns the frame period.
func (r *Renderer) Interval() time.Duration {
	return r.interval
}

// Stats returns per-edge counters in render order.
func (r *Renderer) Stats() []EdgeStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EdgeStats, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.edges[id].stats())
	}
	return out
}

// Points returns a copy of the in-flight points of one edge.
func (r *Renderer) Points(id string) ([]Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ae, ok := r.edges[id]
	if !ok {
		return nil, false
	}
	return ae.Points(), true
}

// ProcessStep runs one frame immediately. A frame that fails stops the
// renderer and its error is returned; later calls return ErrNotRunning.
func (r *Renderer) ProcessStep() error {
	f, gen, err := r.step(0)
	if err != nil {
		return err
	}
	return r.notify(gen, f)
}

func (r *Renderer) loop(gen uint64, stop <-chan struct{}, next <-chan time.Time) {
	for {
		select {
		case <-stop:
			return
		case <-next:
		}
		next = r.clock.After(r.interval)

		f, _, err := r.step(gen)
		if err == nil {
			err = r.notify(gen, f)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrNotRunning), errors.Is(err, errStale):
			return
		default:
			log.WithError(err).Error("traffic frame failed, renderer stopped")
			if r.onError != nil {
				r.onError(err)
			}
			return
		}
	}
}

// step runs one frame under the lock and reports the generation it ran in.
// gen 0 skips the loop generation check.
func (r *Renderer) step(gen uint64) (Frame, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return Frame{}, 0, ErrNotRunning
	}
	if gen != 0 && gen != r.generation {
		return Frame{}, 0, errStale
	}
	f, err := r.frameLocked()
	return f, r.generation, err
}

func (r *Renderer) frameLocked() (f Frame, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("traffic: frame panicked: %v", p)
		}
		if err != nil {
			r.err = err
			r.stopLocked()
		}
	}()

	now := r.clock.Now()
	elapsed := r.interval
	if r.hasLast {
		elapsed = now.Sub(r.last)
	}

	r.surface.Clear()
	r.surface.SetTransform(r.viewport.Transform())
	ctx := r.surface.Context()

	f = Frame{Time: now, Elapsed: elapsed, Edges: len(r.order)}
	for _, id := range r.order {
		ae := r.edges[id]
		before := ae.spawned
		ae.Step(elapsed)
		f.Spawned += int(ae.spawned - before)
		f.Finished += ae.RemoveFinishedPoints()
		f.Points += len(ae.points)

		if ae.edge.Dimmed() {
			continue
		}
		if err := ae.Render(ctx, r.skin); err != nil {
			return Frame{}, fmt.Errorf("traffic: rendering edge %q: %w", id, err)
		}
		f.Drawn += len(ae.points)
	}

	r.last = now
	r.hasLast = true
	r.seq++
	f.Seq = r.seq
	return f, nil
}

// notify runs the observers for a frame rendered in generation gen. An
// observer panic stops that generation and is returned as the frame error.
func (r *Renderer) notify(gen uint64, f Frame) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err = fmt.Errorf("traffic: frame observer panicked: %v", p)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.running && r.generation == gen {
			r.err = err
			r.stopLocked()
		}
	}()

	for _, o := range r.observers {
		o.ObserveFrame(f)
	}
	return nil
}
