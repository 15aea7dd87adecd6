// Package canvas defines the 2D drawing seam the traffic engine paints on,
// plus two surfaces: a display-list Recording streamed to browsers, and a
// Raster that paints into an image.
package canvas

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Vec is a point in screen space.
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Lerp interpolates between a and b. t=0 yields a, t=1 yields b.
func Lerp(a, b Vec, t float64) Vec {
	return Vec{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// Transform is the host graph's pan and zoom. Screen = model*Zoom + Pan.
type Transform struct {
	Pan  Vec     `json:"pan"`
	Zoom float64 `json:"zoom"`
}

// Identity is the transform of an unpanned, unzoomed view.
var Identity = Transform{Zoom: 1}

// Context is the subset of a 2D canvas API the point shapes need.
// Paths are built with BeginPath/MoveTo/LineTo/Arc/ClosePath and consumed
// by Fill and Stroke; a path survives a Fill so it can also be stroked.
type Context interface {
	Save()
	Restore()
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Arc adds a circular arc centered at (x, y) from startAngle to endAngle,
	// in radians.
	Arc(x, y, radius, startAngle, endAngle float64)
	ClosePath()
	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
	Fill()
	Stroke()
}

// Surface is what the engine owns for the lifetime of a renderer.
type Surface interface {
	Context() Context
	// Clear wipes everything painted since the last Clear.
	Clear()
	// SetTransform replaces the coordinate transform for subsequent drawing.
	SetTransform(t Transform)
}

// ParseColor parses "#rgb" or "#rrggbb" (leading # optional).
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 3 && len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return color.RGBA{}, fmt.Errorf("invalid color %q", s)
		}
	}
	c := drawing.ColorFromHex(hex)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
}

// MustColor is ParseColor for package-level palettes.
func MustColor(s string) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats c as #rrggbb, dropping alpha.
func Hex(c color.Color) string {
	if c == nil {
		return ""
	}
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
