package traffic

import (
	"math"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
)

// Protocol is the kind of traffic an edge carries.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
	ProtocolTCP  Protocol = "tcp"
)

// Metrics are the live measurements the host attaches to an edge.
// Absent values are NaN.
type Metrics struct {
	Rate       float64 // requests per second
	Latency    float64
	PercentErr float64 // 0-100
}

// NoMetrics is an edge with nothing measured.
func NoMetrics() Metrics {
	return Metrics{Rate: math.NaN(), Latency: math.NaN(), PercentErr: math.NaN()}
}

// Edge is the host graph's handle for one edge. The engine borrows it: it
// reads attributes through it and never copies or frees the underlying edge.
type Edge interface {
	// ID is stable for the lifetime of the edge in the host graph.
	ID() string
	Metrics() Metrics
	Protocol() Protocol
	// Dimmed reports whether the host has visually de-emphasized the edge.
	Dimmed() bool
	// Endpoints returns the current screen-space start and end of the edge.
	// It is read every frame and may fail if the edge vanished.
	Endpoints() (from, to canvas.Vec, err error)
	// Color is the edge's display color, used as the fallback point color.
	Color() string
}

// Viewport gives the host graph's current pan and zoom.
type Viewport interface {
	Transform() canvas.Transform
}

type fixedViewport canvas.Transform

func (v fixedViewport) Transform() canvas.Transform {
	return canvas.Transform(v)
}
