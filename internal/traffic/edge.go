package traffic

import (
	"fmt"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/skin"
)

// AnimatedEdge holds the in-flight points of one host edge, oldest first.
type AnimatedEdge struct {
	edge      Edge
	generator *Generator
	points    []Point

	spawned  uint64
	finished uint64
	errors   uint64
}

// EdgeStats are the lifetime counters of one animated edge.
type EdgeStats struct {
	ID       string `json:"id" msgpack:"id"`
	InFlight int    `json:"in_flight" msgpack:"in_flight"`
	Spawned  uint64 `json:"spawned" msgpack:"spawned"`
	Finished uint64 `json:"finished" msgpack:"finished"`
	Errors   uint64 `json:"errors" msgpack:"errors"`
	Dimmed   bool   `json:"dimmed" msgpack:"dimmed"`
}

// NewAnimatedEdge binds a generator to a host edge.
func NewAnimatedEdge(edge Edge, generator *Generator) *AnimatedEdge {
	return &AnimatedEdge{
		edge:      edge,
		generator: generator,
	}
}

// Step moves every point along by elapsed, then gives the generator a chance
// to append a new one.
func (e *AnimatedEdge) Step(elapsed time.Duration) {
	secs := elapsed.Seconds()
	for i := range e.points {
		e.points[i].Delta += secs * e.points[i].Speed
	}
	if p, ok := e.generator.ProcessStep(elapsed); ok {
		e.points = append(e.points, p)
		e.spawned++
		if p.Kind == skin.KindError {
			e.errors++
		}
	}
}

// RemoveFinishedPoints drops points past the end of the edge and returns how
// many were dropped.
func (e *AnimatedEdge) RemoveFinishedPoints() int {
	kept := e.points[:0]
	for _, p := range e.points {
		if p.Delta <= 1 {
			kept = append(kept, p)
		}
	}
	removed := len(e.points) - len(kept)
	e.points = kept
	e.finished += uint64(removed)
	return removed
}

// Points returns a copy of the in-flight points.
func (e *AnimatedEdge) Points() []Point {
	out := make([]Point, len(e.points))
	copy(out, e.points)
	return out
}

// ClearPoints drops every in-flight point without counting them as finished.
func (e *AnimatedEdge) ClearPoints() {
	e.points = e.points[:0]
}

func (e *AnimatedEdge) Edge() Edge            { return e.edge }
func (e *AnimatedEdge) Generator() *Generator { return e.generator }

// SetEdge swaps the host handle, keeping in-flight points.
func (e *AnimatedEdge) SetEdge(edge Edge) {
	e.edge = edge
}

func (e *AnimatedEdge) SetTimer(timer time.Duration) { e.generator.SetTimer(timer) }
func (e *AnimatedEdge) SetSpeed(speed float64)       { e.generator.SetSpeed(speed) }
func (e *AnimatedEdge) SetErrorRate(rate float64)    { e.generator.SetErrorRate(rate) }
func (e *AnimatedEdge) SetProtocol(p Protocol)       { e.generator.SetProtocol(p) }

// Render draws every point at its interpolated position between the edge's
// current endpoints. The context's colors are preset to the edge color so
// shapes without their own colors fall back to it.
func (e *AnimatedEdge) Render(ctx canvas.Context, s skin.Skin) error {
	if len(e.points) == 0 {
		return nil
	}
	from, to, err := e.edge.Endpoints()
	if err != nil {
		return fmt.Errorf("reading endpoints: %w", err)
	}

	ctx.Save()
	defer ctx.Restore()
	if c, err := canvas.ParseColor(e.edge.Color()); err == nil {
		ctx.SetFillColor(c)
		ctx.SetStrokeColor(c)
	}

	for _, p := range e.points {
		r, err := s.ForKind(p.Kind)
		if err != nil {
			return err
		}
		r.Render(ctx, canvas.Lerp(from, to, p.Delta))
	}
	return nil
}

func (e *AnimatedEdge) stats() EdgeStats {
	return EdgeStats{
		ID:       e.edge.ID(),
		InFlight: len(e.points),
		Spawned:  e.spawned,
		Finished: e.finished,
		Errors:   e.errors,
		Dimmed:   e.edge.Dimmed(),
	}
}
