// Package recorder captures engine frames for later inspection and exports
// them as JSON or msgpack, optionally zstd-compressed.
package recorder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// Recorder captures frame records.
// Thread-safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []FrameRecord
	writer  io.Writer // optional: stream records as they arrive
	limit   int
}

// New creates a new Recorder. If w is non-nil, records are also
// written to w as newline-delimited JSON as they arrive.
func New(w io.Writer) *Recorder {
	return &Recorder{
		writer: w,
	}
}

// SetLimit keeps only the newest n records in memory. Zero keeps all.
// Streaming to the writer is not affected.
func (r *Recorder) SetLimit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = n
	r.trim()
}

// Record captures a single frame record.
func (r *Recorder) Record(rec FrameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	r.trim()

	if r.writer != nil {
		if err := json.NewEncoder(r.writer).Encode(rec); err != nil {
			return fmt.Errorf("streaming frame %d: %w", rec.Frame.Seq, err)
		}
	}
	return nil
}

// trim must be called with r.mu held.
func (r *Recorder) trim() {
	if r.limit > 0 && len(r.records) > r.limit {
		r.records = append(r.records[:0], r.records[len(r.records)-r.limit:]...)
	}
}

// Records returns a copy of all recorded frames.
func (r *Recorder) Records() []FrameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FrameRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Export writes all records in the given format.
func (r *Recorder) Export(w io.Writer, f Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := f.encode(w, r.records); err != nil {
		return fmt.Errorf("exporting %s: %w", f, err)
	}
	return nil
}

// ExportFile writes all records to path, inferring the format from its name.
func (r *Recorder) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Export(f, FormatFromPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads records written by Export.
func Load(rd io.Reader, f Format) ([]FrameRecord, error) {
	records, err := f.decode(rd)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", f, err)
	}
	return records, nil
}

// LoadFile reads records from a file written by ExportFile.
func LoadFile(path string) ([]FrameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, FormatFromPath(path))
}

// Observer records every frame a renderer produces.
type Observer struct {
	rec   *Recorder
	stats StatsSource
	ops   OpsSource
}

// NewObserver records frames into rec. stats and ops are optional.
func NewObserver(rec *Recorder, stats StatsSource, ops OpsSource) *Observer {
	return &Observer{rec: rec, stats: stats, ops: ops}
}

// ObserveFrame implements traffic.FrameObserver.
func (o *Observer) ObserveFrame(f traffic.Frame) {
	rec := FrameRecord{Frame: f}
	if o.stats != nil {
		rec.Edges = o.stats.Stats()
	}
	if o.ops != nil {
		rec.Ops = o.ops.Ops()
	}
	if err := o.rec.Record(rec); err != nil {
		log.WithError(err).Warn("frame not recorded")
	}
}

// Bind sets the stats source after construction, for renderers that take the
// observer as an option.
func (o *Observer) Bind(stats StatsSource) {
	o.stats = stats
}
