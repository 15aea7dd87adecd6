package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
)

// Raster paints into an RGBA image through go-chart's raster graphic
// context. It renders at Supersample times the requested size and scales
// down when the image is read, which smooths the small point shapes.
type Raster struct {
	width, height int
	supersample   int
	background    color.Color
	backdrop      image.Image

	img  *image.RGBA
	gc   *drawing.RasterGraphicContext
	path *drawing.Path
}

// NewRaster creates a width x height raster. supersample < 1 is treated as 1.
// A nil background clears to transparent.
func NewRaster(width, height, supersample int, background color.Color) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster size must be positive, got %dx%d", width, height)
	}
	if supersample < 1 {
		supersample = 1
	}
	if background == nil {
		background = color.Transparent
	}

	img := image.NewRGBA(image.Rect(0, 0, width*supersample, height*supersample))
	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("creating graphic context: %w", err)
	}

	r := &Raster{
		width:       width,
		height:      height,
		supersample: supersample,
		background:  background,
		img:         img,
		gc:          gc,
		path:        &drawing.Path{},
	}
	r.Clear()
	r.SetTransform(Identity)
	return r, nil
}

// SetBackdrop makes Clear restore img instead of the flat background.
// The host graph layer is typically painted once and installed here.
func (r *Raster) SetBackdrop(img image.Image) {
	r.backdrop = img
}

func (r *Raster) Context() Context {
	return r
}

func (r *Raster) Clear() {
	bounds := r.img.Bounds()
	draw.Draw(r.img, bounds, image.NewUniform(r.background), image.Point{}, draw.Src)
	if r.backdrop != nil {
		draw.CatmullRom.Scale(r.img, bounds, r.backdrop, r.backdrop.Bounds(), draw.Over, nil)
	}
	r.path.Clear()
}

func (r *Raster) SetTransform(t Transform) {
	zoom := t.Zoom
	if zoom == 0 {
		zoom = 1
	}
	s := float64(r.supersample)
	r.gc.SetMatrixTransform(drawing.NewIdentityMatrix())
	r.gc.Scale(s, s)
	r.gc.Translate(t.Pan.X, t.Pan.Y)
	r.gc.Scale(zoom, zoom)
}

// Image returns the painted frame at the requested size.
func (r *Raster) Image() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if r.supersample == 1 {
		draw.Draw(out, out.Bounds(), r.img, image.Point{}, draw.Src)
		return out
	}
	draw.CatmullRom.Scale(out, out.Bounds(), r.img, r.img.Bounds(), draw.Src, nil)
	return out
}

// WritePNG encodes the current frame.
func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Image())
}

func (r *Raster) Save()    { r.gc.Save() }
func (r *Raster) Restore() { r.gc.Restore() }

func (r *Raster) BeginPath() {
	r.path = &drawing.Path{}
}

func (r *Raster) MoveTo(x, y float64) { r.path.MoveTo(x, y) }
func (r *Raster) LineTo(x, y float64) { r.path.LineTo(x, y) }
func (r *Raster) ClosePath()          { r.path.Close() }

func (r *Raster) Arc(x, y, radius, startAngle, endAngle float64) {
	r.path.ArcTo(x, y, radius, radius, startAngle, endAngle-startAngle)
}

func (r *Raster) SetFillColor(c color.Color)   { r.gc.SetFillColor(c) }
func (r *Raster) SetStrokeColor(c color.Color) { r.gc.SetStrokeColor(c) }
func (r *Raster) SetLineWidth(w float64)       { r.gc.SetLineWidth(w) }

func (r *Raster) Fill() {
	if r.path.IsEmpty() {
		return
	}
	r.gc.Fill(r.path)
}

func (r *Raster) Stroke() {
	if r.path.IsEmpty() {
		return
	}
	r.gc.Stroke(r.path)
}
