// Package session pairs a live topology layout with a traffic renderer.
package session

import (
	"github.com/SmitUplenchwar2687/meshflow/pkg/config"
	"github.com/SmitUplenchwar2687/meshflow/pkg/traffic"

	internalsession "github.com/SmitUplenchwar2687/meshflow/internal/session"
)

// Session owns a graph layout and the renderer animating it.
type Session = internalsession.Session

// New creates a stopped session painting on surface.
func New(surface traffic.Surface, cfg config.EngineConfig, opts ...traffic.Option) (*Session, error) {
	return internalsession.New(surface, cfg, opts...)
}
