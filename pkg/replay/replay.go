package replay

import (
	"io"

	internalreplay "github.com/SmitUplenchwar2687/meshflow/internal/replay"
	"github.com/SmitUplenchwar2687/meshflow/pkg/clock"
	"github.com/SmitUplenchwar2687/meshflow/pkg/snapshot"
)

// Filter selects the edges and the time window of a scenario to play.
type Filter = internalreplay.Filter

// Player drives a session through a scenario on a virtual clock.
type Player = internalreplay.Player

// Result captures one played frame.
type Result = internalreplay.Result

// Summary aggregates playback statistics.
type Summary = internalreplay.Summary

// New creates a player for sc. Pass Player.Options to the session it runs.
func New(sc *snapshot.Scenario, vc *clock.VirtualClock, speed float64, filter Filter) *Player {
	return internalreplay.New(sc, vc, speed, filter)
}

// Load decodes a scenario and creates a player for it.
func Load(r io.Reader, format snapshot.Format, vc *clock.VirtualClock, speed float64, filter Filter) (*Player, error) {
	return internalreplay.Load(r, format, vc, speed, filter)
}
