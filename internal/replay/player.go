// Package replay plays a scenario through a session on a virtual clock,
// one frame at a time.
package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// Player drives a session through a scenario at a configurable speed.
type Player struct {
	scenario *snapshot.Scenario
	clock    *clock.VirtualClock
	filter   Filter
	speed    float64 // 1.0 = real-time, 10.0 = 10x, 0 = instant

	frames  chan traffic.Frame
	errs    chan error
	onApply func(snapshot.Graph)
}

// Result captures one played frame.
type Result struct {
	Offset  time.Duration `json:"offset"` // virtual time since the scenario start
	Frame   traffic.Frame `json:"frame"`
	Applied bool          `json:"applied"` // a scenario update was applied after this frame
}

// Summary aggregates playback statistics.
type Summary struct {
	Scenario     string                       `json:"scenario,omitempty"`
	Frames       int                          `json:"frames"`
	Updates      int                          `json:"updates"`
	Spawned      int                          `json:"spawned"`
	Finished     int                          `json:"finished"`
	Duration     time.Duration                `json:"duration"`      // virtual time span
	WallDuration time.Duration                `json:"wall_duration"` // actual wall clock time
	PerEdge      map[string]traffic.EdgeStats `json:"per_edge"`
}

// New creates a player for sc.
func New(sc *snapshot.Scenario, vc *clock.VirtualClock, speed float64, filter Filter) *Player {
	if speed < 0 {
		speed = 0
	}
	return &Player{
		scenario: sc,
		clock:    vc,
		filter:   filter,
		speed:    speed,
		frames:   make(chan traffic.Frame, 1),
		errs:     make(chan error, 1),
	}
}

// Load reads a scenario from r and creates a player for it.
func Load(r io.Reader, format snapshot.Format, vc *clock.VirtualClock, speed float64, filter Filter) (*Player, error) {
	sc, err := snapshot.DecodeScenario(r, format)
	if err != nil {
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	return New(sc, vc, speed, filter), nil
}

// Options returns the renderer options the session must be built with so
// the player can follow its frames.
func (p *Player) Options() []traffic.Option {
	return []traffic.Option{
		traffic.WithClock(p.clock),
		traffic.WithObserver(p),
		traffic.WithErrorHandler(p.fail),
	}
}

// ObserveFrame implements traffic.FrameObserver.
func (p *Player) ObserveFrame(f traffic.Frame) {
	select {
	case p.frames <- f:
	default:
		log.WithField("seq", f.Seq).Warn("frame produced outside playback dropped")
	}
}

// OnApply registers fn to run after every graph the player applies, before
// the next frame is painted.
func (p *Player) OnApply(fn func(snapshot.Graph)) {
	p.onApply = fn
}

func (p *Player) apply(sess *session.Session, offset time.Duration) error {
	g := p.filter.Apply(p.scenario.At(offset))
	if err := sess.Apply(g); err != nil {
		return fmt.Errorf("applying graph at %s: %w", offset, err)
	}
	if p.onApply != nil {
		p.onApply(g)
	}
	return nil
}

func (p *Player) fail(err error) {
	select {
	case p.errs <- err:
	default:
	}
}

// Run plays the filtered window of the scenario through sess, calling cb
// after every frame. sess must have been created with Options. The session
// is stopped when Run returns.
func (p *Player) Run(ctx context.Context, sess *session.Session, cb func(Result)) (*Summary, error) {
	length := p.scenario.Length()
	from, to := p.filter.window(length)
	if to <= from {
		return nil, fmt.Errorf("nothing to play: window %s..%s of a %s scenario", from, to, length)
	}

	if err := p.apply(sess, from); err != nil {
		return nil, err
	}

	var pending []time.Duration
	for _, off := range p.scenario.Offsets() {
		if off > from && off < to {
			pending = append(pending, off)
		}
	}

	summary := &Summary{
		Scenario: p.scenario.Name,
		PerEdge:  make(map[string]traffic.EdgeStats),
	}

	interval := sess.Renderer().Interval()
	sess.Start()
	defer sess.Stop()

	wallStart := time.Now()
	offset := from
	for offset < to {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if p.speed > 0 {
			// Sleep for scaled wall-clock time for visual effect.
			if scaled := time.Duration(float64(interval) / p.speed); scaled > time.Millisecond {
				select {
				case <-ctx.Done():
					return summary, ctx.Err()
				case <-time.After(scaled):
				}
			}
		}

		p.clock.Advance(interval)
		offset += interval

		var f traffic.Frame
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case err := <-p.errs:
			return summary, err
		case f = <-p.frames:
		}

		applied := false
		for len(pending) > 0 && pending[0] <= offset {
			pending = pending[1:]
			applied = true
		}
		if applied {
			if err := p.apply(sess, offset); err != nil {
				return summary, err
			}
			summary.Updates++
		}

		summary.Frames++
		summary.Spawned += f.Spawned
		summary.Finished += f.Finished

		if cb != nil {
			cb(Result{Offset: offset - from, Frame: f, Applied: applied})
		}
	}

	for _, st := range sess.Stats() {
		summary.PerEdge[st.ID] = st
	}
	summary.Duration = offset - from
	summary.WallDuration = time.Since(wallStart)

	return summary, nil
}
