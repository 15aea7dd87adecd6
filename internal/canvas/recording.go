package canvas

import (
	"image/color"
	"sync"
)

// Op is one recorded drawing call. Browsers replay it 1:1 on a
// CanvasRenderingContext2D.
type Op struct {
	Name  string    `json:"op" msgpack:"op"`
	Args  []float64 `json:"args,omitempty" msgpack:"args,omitempty"`
	Color string    `json:"color,omitempty" msgpack:"color,omitempty"`
}

// Op names.
const (
	OpSave         = "save"
	OpRestore      = "restore"
	OpBeginPath    = "beginPath"
	OpMoveTo       = "moveTo"
	OpLineTo       = "lineTo"
	OpArc          = "arc"
	OpClosePath    = "closePath"
	OpFillStyle    = "fillStyle"
	OpStrokeStyle  = "strokeStyle"
	OpLineWidth    = "lineWidth"
	OpFill         = "fill"
	OpStroke       = "stroke"
	OpSetTransform = "setTransform"
)

// Recording is a Surface that keeps the display list of the current frame.
// Clear starts a new frame. Safe for concurrent use.
type Recording struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecording creates an empty recording surface.
func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Context() Context {
	return r
}

func (r *Recording) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = r.ops[:0]
}

func (r *Recording) SetTransform(t Transform) {
	r.add(Op{Name: OpSetTransform, Args: []float64{t.Zoom, 0, 0, t.Zoom, t.Pan.X, t.Pan.Y}})
}

// Ops returns a copy of the ops recorded since the last Clear.
func (r *Recording) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Len returns the number of ops recorded since the last Clear.
func (r *Recording) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

func (r *Recording) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *Recording) Save()      { r.add(Op{Name: OpSave}) }
func (r *Recording) Restore()   { r.add(Op{Name: OpRestore}) }
func (r *Recording) BeginPath() { r.add(Op{Name: OpBeginPath}) }
func (r *Recording) ClosePath() { r.add(Op{Name: OpClosePath}) }
func (r *Recording) Fill()      { r.add(Op{Name: OpFill}) }
func (r *Recording) Stroke()    { r.add(Op{Name: OpStroke}) }

func (r *Recording) MoveTo(x, y float64) {
	r.add(Op{Name: OpMoveTo, Args: []float64{x, y}})
}

func (r *Recording) LineTo(x, y float64) {
	r.add(Op{Name: OpLineTo, Args: []float64{x, y}})
}

func (r *Recording) Arc(x, y, radius, startAngle, endAngle float64) {
	r.add(Op{Name: OpArc, Args: []float64{x, y, radius, startAngle, endAngle}})
}

func (r *Recording) SetFillColor(c color.Color) {
	r.add(Op{Name: OpFillStyle, Color: Hex(c)})
}

func (r *Recording) SetStrokeColor(c color.Color) {
	r.add(Op{Name: OpStrokeStyle, Color: Hex(c)})
}

func (r *Recording) SetLineWidth(w float64) {
	r.add(Op{Name: OpLineWidth, Args: []float64{w}})
}

// Count returns how many recorded ops have the given name.
func Count(ops []Op, name string) int {
	n := 0
	for _, op := range ops {
		if op.Name == name {
			n++
		}
	}
	return n
}
