package traffic

import (
	"math/rand"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/skin"
)

// MaxJitter bounds the random early-fire window of a spawn countdown.
const MaxJitter = 200 * time.Millisecond

// RandSource is the random seam of the engine. *rand.Rand satisfies it.
type RandSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

// Point is one animated dot in flight on one edge.
type Point struct {
	Delta float64   `json:"delta"` // 0 at the source, 1 at the target
	Speed float64   `json:"speed"` // edge lengths per second
	Kind  skin.Kind `json:"kind"`
}

// Generator decides when an edge emits a point and what kind it is.
// Not safe for concurrent use; the Renderer serializes access.
type Generator struct {
	rand      RandSource
	timer     time.Duration
	countdown time.Duration
	armed     bool
	speed     float64
	errorRate float64
	protocol  Protocol
}

// NewGenerator creates a generator with no traffic. A nil source uses a
// time-seeded math/rand.
func NewGenerator(src RandSource) *Generator {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		rand:     src,
		speed:    SpeedMax,
		protocol: ProtocolHTTP,
	}
}

// Configure applies all params through the individual setters.
func (g *Generator) Configure(p Params) {
	g.SetTimer(p.Timer)
	g.SetSpeed(p.Speed)
	g.SetErrorRate(p.ErrorRate)
	g.SetProtocol(p.Protocol)
}

// SetTimer replaces the average spawn interval. A running countdown is left
// alone; an idle generator is armed with the new interval.
func (g *Generator) SetTimer(timer time.Duration) {
	if timer < 0 {
		timer = 0
	}
	g.timer = timer
	if !g.armed {
		g.countdown = timer
		g.armed = timer > 0
	}
}

func (g *Generator) SetSpeed(speed float64) {
	g.speed = speed
}

func (g *Generator) SetErrorRate(rate float64) {
	g.errorRate = clamp(rate, 0, 1)
}

func (g *Generator) SetProtocol(p Protocol) {
	if p == "" {
		p = ProtocolHTTP
	}
	g.protocol = p
}

func (g *Generator) Timer() time.Duration { return g.timer }
func (g *Generator) Speed() float64       { return g.speed }
func (g *Generator) ErrorRate() float64   { return g.errorRate }

// Armed reports whether a spawn countdown is running.
func (g *Generator) Armed() bool { return g.armed }

// ProcessStep advances the countdown by elapsed and returns a new point when
// it fires.
//
// The countdown fires once it drops to or below a fresh random threshold in
// [0, MaxJitter) rather than at exactly zero, so edges with identical rates
// drift apart instead of spawning in lockstep.
func (g *Generator) ProcessStep(elapsed time.Duration) (Point, bool) {
	if !g.armed {
		return Point{}, false
	}
	g.countdown -= elapsed
	threshold := time.Duration(g.rand.Float64() * float64(MaxJitter))
	if g.countdown > threshold {
		return Point{}, false
	}
	g.countdown = g.timer
	g.armed = g.timer > 0
	return g.NextPoint(), true
}

// NextPoint builds a point at the start of the edge with the current speed.
func (g *Generator) NextPoint() Point {
	kind := skin.KindSuccess
	switch {
	case g.protocol == ProtocolTCP:
		kind = skin.KindTCP
	case g.rand.Float64() < g.errorRate:
		kind = skin.KindError
	}
	return Point{Delta: 0, Speed: g.speed, Kind: kind}
}
