package recorder

import (
	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// FrameRecord is one captured frame: the engine's frame summary, the
// per-edge counters after it, and optionally its display list.
type FrameRecord struct {
	Frame traffic.Frame       `json:"frame" msgpack:"frame"`
	Edges []traffic.EdgeStats `json:"edges,omitempty" msgpack:"edges,omitempty"`
	Ops   []canvas.Op         `json:"ops,omitempty" msgpack:"ops,omitempty"`
}

// StatsSource provides per-edge counters, normally a *traffic.Renderer.
type StatsSource interface {
	Stats() []traffic.EdgeStats
}

// OpsSource provides the current display list, normally a *canvas.Recording.
type OpsSource interface {
	Ops() []canvas.Op
}
