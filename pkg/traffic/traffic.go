// Package traffic embeds the meshflow animation engine: a Renderer paints
// points travelling along host-supplied edges onto a canvas Surface.
package traffic

import (
	"image/color"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/skin"
	internaltraffic "github.com/SmitUplenchwar2687/meshflow/internal/traffic"
	"github.com/SmitUplenchwar2687/meshflow/pkg/clock"
)

// Protocol is the kind of traffic an edge carries.
type Protocol = internaltraffic.Protocol

const (
	ProtocolHTTP = internaltraffic.ProtocolHTTP
	ProtocolGRPC = internaltraffic.ProtocolGRPC
	ProtocolTCP  = internaltraffic.ProtocolTCP
)

// MaxRate is the request rate at which spawning stops getting faster.
const MaxRate = internaltraffic.MaxRate

// Metrics are the live measurements the host attaches to an edge.
type Metrics = internaltraffic.Metrics

// Edge is a host edge the renderer borrows.
type Edge = internaltraffic.Edge

// Viewport supplies the pan and zoom applied to each frame.
type Viewport = internaltraffic.Viewport

// Renderer owns the per-edge point state and the frame loop.
type Renderer = internaltraffic.Renderer

// Option configures a Renderer.
type Option = internaltraffic.Option

// Frame summarizes one painted frame.
type Frame = internaltraffic.Frame

// FrameObserver is notified after every successful frame.
type FrameObserver = internaltraffic.FrameObserver

// ObserverFunc adapts a function to FrameObserver.
type ObserverFunc = internaltraffic.ObserverFunc

// EdgeStats are the counters of one animated edge.
type EdgeStats = internaltraffic.EdgeStats

// Point is one request in flight.
type Point = internaltraffic.Point

// Skin maps point kinds to shapes.
type Skin = skin.Skin

// Surface is what a Renderer paints on.
type Surface = canvas.Surface

// Vec is a 2D point in graph coordinates.
type Vec = canvas.Vec

// Transform is a pan and zoom.
type Transform = canvas.Transform

// Recording is a Surface that keeps the frame as a display list.
type Recording = canvas.Recording

// Raster is a Surface backed by an RGBA image.
type Raster = canvas.Raster

// ErrNotRunning is returned by ProcessStep on a stopped renderer.
var ErrNotRunning = internaltraffic.ErrNotRunning

// NoMetrics is an edge with nothing measured.
func NoMetrics() Metrics {
	return internaltraffic.NoMetrics()
}

// New creates a stopped renderer painting edges on surface.
func New(surface Surface, edges []Edge, opts ...Option) *Renderer {
	return internaltraffic.New(surface, edges, opts...)
}

// NewRecording creates an empty display-list surface.
func NewRecording() *Recording {
	return canvas.NewRecording()
}

// NewRaster creates a width x height image surface.
func NewRaster(width, height, supersample int, background color.Color) (*Raster, error) {
	return canvas.NewRaster(width, height, supersample, background)
}

// SkinByName returns the "normal" or "holiday" skin.
func SkinByName(name string) (Skin, error) {
	return skin.ByName(name)
}

// RandSource feeds spawn jitter and error categorization.
type RandSource = internaltraffic.RandSource

// WithClock sets the clock driving the frame loop.
func WithClock(c clock.Clock) Option { return internaltraffic.WithClock(c) }

// WithRand replaces the random source, mostly for deterministic tests.
func WithRand(src RandSource) Option { return internaltraffic.WithRand(src) }

func WithSkin(s Skin) Option { return internaltraffic.WithSkin(s) }

func WithFrameRate(fps int) Option { return internaltraffic.WithFrameRate(fps) }

func WithViewport(v Viewport) Option { return internaltraffic.WithViewport(v) }

// WithObserver adds a frame observer. Observers run in the order added.
func WithObserver(o FrameObserver) Option { return internaltraffic.WithObserver(o) }

// WithErrorHandler is called once when the loop stops on a render error.
func WithErrorHandler(fn func(error)) Option { return internaltraffic.WithErrorHandler(fn) }
