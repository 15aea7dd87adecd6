package recorder

import (
	"io"

	internalrecorder "github.com/SmitUplenchwar2687/meshflow/internal/recorder"
)

// FrameRecord is one captured frame with its per-edge counters.
type FrameRecord = internalrecorder.FrameRecord

// Format is the codec and compression of an export file.
type Format = internalrecorder.Format

// Recorder keeps played frames for export.
type Recorder = internalrecorder.Recorder

// Observer records every frame a renderer paints.
type Observer = internalrecorder.Observer

// StatsSource provides per-edge counters.
type StatsSource = internalrecorder.StatsSource

// OpsSource provides the current display list.
type OpsSource = internalrecorder.OpsSource

const (
	CodecJSON       = internalrecorder.CodecJSON
	CodecMsgpack    = internalrecorder.CodecMsgpack
	CompressionNone = internalrecorder.CompressionNone
	CompressionZstd = internalrecorder.CompressionZstd
)

// New creates a Recorder that also streams records to w when non-nil.
func New(w io.Writer) *Recorder {
	return internalrecorder.New(w)
}

// NewObserver records frames into rec. Either source may be nil.
func NewObserver(rec *Recorder, stats StatsSource, ops OpsSource) *Observer {
	return internalrecorder.NewObserver(rec, stats, ops)
}

// FormatFromPath infers the export format from a file name.
func FormatFromPath(path string) Format {
	return internalrecorder.FormatFromPath(path)
}

// Load reads records written by Recorder.Export.
func Load(r io.Reader, f Format) ([]FrameRecord, error) {
	return internalrecorder.Load(r, f)
}

// LoadFile reads an export file, inferring its format from the name.
func LoadFile(path string) ([]FrameRecord, error) {
	return internalrecorder.LoadFile(path)
}
