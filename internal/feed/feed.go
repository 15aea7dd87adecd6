// Package feed delivers topology snapshots to the engine from outside the
// process: a watched file or a Redis key plus pub/sub channel.
package feed

import (
	"context"

	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
)

// ApplyFunc receives every snapshot a source reads. A returned error is
// logged and the source keeps running.
type ApplyFunc func(g snapshot.Graph) error

// Source streams snapshots until ctx is cancelled.
type Source interface {
	// Run delivers the current snapshot, if any, then every update. It
	// returns nil when ctx is cancelled.
	Run(ctx context.Context, apply ApplyFunc) error
}
