// Package session binds a host graph layout to a traffic renderer so that
// graph changes and edge registration happen as one step.
package session

import (
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/skin"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// Session is one animated graph: a Layout the host mutates and the Renderer
// painting traffic over it.
type Session struct {
	layout   *snapshot.Layout
	renderer *traffic.Renderer
}

// New creates a stopped session painting on surface. opts are applied after
// the ones derived from cfg, so they win.
func New(surface canvas.Surface, cfg config.EngineConfig, opts ...traffic.Option) (*Session, error) {
	sk, err := skin.ByName(cfg.Skin)
	if err != nil {
		return nil, err
	}
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("frame rate must be positive, got %d", cfg.FrameRate)
	}

	layout := snapshot.NewLayout()
	base := []traffic.Option{
		traffic.WithSkin(sk),
		traffic.WithFrameRate(cfg.FrameRate),
		traffic.WithViewport(layout),
	}
	if cfg.Seed != 0 {
		base = append(base, traffic.WithRand(rand.New(rand.NewSource(cfg.Seed))))
	}

	return &Session{
		layout:   layout,
		renderer: traffic.New(surface, nil, append(base, opts...)...),
	}, nil
}

func (s *Session) Layout() *snapshot.Layout     { return s.layout }
func (s *Session) Renderer() *traffic.Renderer { return s.renderer }

// Apply replaces the graph. Edges already animating keep their points.
// An invalid graph is rejected and the current one stays.
func (s *Session) Apply(g snapshot.Graph) error {
	err := s.renderer.Sync(func() ([]traffic.Edge, error) {
		return s.layout.Update(g)
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	}).Debug("graph applied")
	return nil
}

// SetDimmed toggles whether an edge's points are drawn.
func (s *Session) SetDimmed(edgeID string, dimmed bool) error {
	return s.layout.SetDimmed(edgeID, dimmed)
}

// MoveNode repositions a node. In-flight points follow on the next frame.
func (s *Session) MoveNode(nodeID string, x, y float64) error {
	return s.layout.MoveNode(nodeID, x, y)
}

// RemoveEdge drops an edge and its points.
func (s *Session) RemoveEdge(edgeID string) error {
	return s.renderer.Sync(func() ([]traffic.Edge, error) {
		if err := s.layout.RemoveEdge(edgeID); err != nil {
			return nil, err
		}
		return s.layout.Edges(), nil
	})
}

// RemoveNode drops a node together with every edge touching it.
func (s *Session) RemoveNode(nodeID string) error {
	return s.renderer.Sync(func() ([]traffic.Edge, error) {
		touching := s.layout.Graph().Edges
		if err := s.layout.RemoveNode(nodeID); err != nil {
			return nil, err
		}
		for _, e := range touching {
			if e.Source != nodeID && e.Target != nodeID {
				continue
			}
			if err := s.layout.RemoveEdge(e.ID); err != nil {
				return nil, err
			}
		}
		return s.layout.Edges(), nil
	})
}

// SetViewport changes the pan and zoom applied to subsequent frames.
func (s *Session) SetViewport(v snapshot.Viewport) {
	s.layout.SetViewport(v)
}

// Draw paints the graph backdrop, without traffic.
func (s *Session) Draw(ctx canvas.Context) {
	s.layout.Draw(ctx)
}

func (s *Session) Start()                      { s.renderer.Start() }
func (s *Session) Stop()                       { s.renderer.Stop() }
func (s *Session) Stats() []traffic.EdgeStats { return s.renderer.Stats() }
