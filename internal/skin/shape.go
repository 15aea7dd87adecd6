package skin

import (
	"image/color"
	"math"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
)

// PointRenderer draws one traffic point. Implementations are immutable
// value types; Render only issues drawing calls on ctx.
//
// The set is closed: Circle, Diamond, ConcentricDiamond and Snowflake.
type PointRenderer interface {
	Render(ctx canvas.Context, at canvas.Vec)
	shape()
}

// A nil Fill or Stroke leaves the context's current color in place, which the
// engine presets to the edge color. A zero LineWidth skips the stroke.

// Circle is a filled, outlined dot.
type Circle struct {
	Radius    float64
	Fill      color.Color
	Stroke    color.Color
	LineWidth float64
}

func (Circle) shape() {}

func (c Circle) Render(ctx canvas.Context, at canvas.Vec) {
	ctx.BeginPath()
	ctx.Arc(at.X, at.Y, c.Radius, 0, 2*math.Pi)
	ctx.ClosePath()
	paint(ctx, c.Fill, c.Stroke, c.LineWidth)
}

// Diamond is a square rotated 45 degrees; Radius is center to corner.
type Diamond struct {
	Radius    float64
	Fill      color.Color
	Stroke    color.Color
	LineWidth float64
}

func (Diamond) shape() {}

func (d Diamond) Render(ctx canvas.Context, at canvas.Vec) {
	ctx.BeginPath()
	ctx.MoveTo(at.X, at.Y-d.Radius)
	ctx.LineTo(at.X+d.Radius, at.Y)
	ctx.LineTo(at.X, at.Y+d.Radius)
	ctx.LineTo(at.X-d.Radius, at.Y)
	ctx.ClosePath()
	paint(ctx, d.Fill, d.Stroke, d.LineWidth)
}

// ConcentricDiamond draws Inner on top of Outer at the same center.
type ConcentricDiamond struct {
	Outer Diamond
	Inner Diamond
}

func (ConcentricDiamond) shape() {}

func (c ConcentricDiamond) Render(ctx canvas.Context, at canvas.Vec) {
	c.Outer.Render(ctx, at)
	c.Inner.Render(ctx, at)
}

// Snowflake is a stroked star of Spikes arms, each with two side branches
// at two thirds of its length.
type Snowflake struct {
	Radius    float64
	Spikes    int
	Stroke    color.Color
	LineWidth float64
}

func (Snowflake) shape() {}

func (s Snowflake) Render(ctx canvas.Context, at canvas.Vec) {
	spikes := s.Spikes
	if spikes < 3 {
		spikes = 6
	}
	branch := s.Radius / 3

	ctx.BeginPath()
	for i := 0; i < spikes; i++ {
		angle := 2 * math.Pi * float64(i) / float64(spikes)
		tip := polar(at, s.Radius, angle)
		ctx.MoveTo(at.X, at.Y)
		ctx.LineTo(tip.X, tip.Y)

		fork := polar(at, s.Radius*2/3, angle)
		for _, side := range []float64{-math.Pi / 4, math.Pi / 4} {
			end := polar(fork, branch, angle+side)
			ctx.MoveTo(fork.X, fork.Y)
			ctx.LineTo(end.X, end.Y)
		}
	}
	if s.Stroke != nil {
		ctx.SetStrokeColor(s.Stroke)
	}
	lw := s.LineWidth
	if lw <= 0 {
		lw = 1
	}
	ctx.SetLineWidth(lw)
	ctx.Stroke()
}

func polar(origin canvas.Vec, r, angle float64) canvas.Vec {
	return canvas.Vec{
		X: origin.X + r*math.Cos(angle),
		Y: origin.Y + r*math.Sin(angle),
	}
}

func paint(ctx canvas.Context, fill, stroke color.Color, lineWidth float64) {
	if fill != nil {
		ctx.SetFillColor(fill)
	}
	ctx.Fill()
	if lineWidth <= 0 {
		return
	}
	if stroke != nil {
		ctx.SetStrokeColor(stroke)
	}
	ctx.SetLineWidth(lineWidth)
	ctx.Stroke()
}
