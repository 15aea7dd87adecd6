package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func triangle() snapshot.Graph {
	return snapshot.Graph{
		Nodes: []snapshot.Node{{ID: "a"}, {ID: "b", X: 100}, {ID: "c", Y: 100}},
		Edges: []snapshot.Edge{
			{ID: "a-b", Source: "a", Target: "b", Rate: snapshot.Float(traffic.MaxRate)},
			{ID: "b-c", Source: "b", Target: "c", Rate: snapshot.Float(traffic.MaxRate)},
			{ID: "c-a", Source: "c", Target: "a", Rate: snapshot.Float(traffic.MaxRate)},
		},
	}
}

func newSession(t *testing.T) (*Session, *canvas.Recording) {
	t.Helper()
	rec := canvas.NewRecording()
	cfg := config.Default().Engine
	cfg.Seed = 1
	s, err := New(rec, cfg, traffic.WithClock(clock.NewVirtualClock(epoch)))
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, rec
}

func edgeIDs(stats []traffic.EdgeStats) []string {
	ids := make([]string, len(stats))
	for i, st := range stats {
		ids[i] = st.ID
	}
	return ids
}

func TestNew_RejectsUnknownSkin(t *testing.T) {
	cfg := config.Default().Engine
	cfg.Skin = "neon"
	_, err := New(canvas.NewRecording(), cfg)
	assert.Error(t, err)
}

func TestNew_RejectsZeroFrameRate(t *testing.T) {
	cfg := config.Default().Engine
	cfg.FrameRate = 0
	_, err := New(canvas.NewRecording(), cfg)
	assert.Error(t, err)
}

func TestApply_RegistersEdges(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))
	assert.Equal(t, []string{"a-b", "b-c", "c-a"}, edgeIDs(s.Stats()))
}

func TestApply_InvalidKeepsCurrentGraph(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))

	bad := triangle()
	bad.Edges[0].Target = "ghost"
	assert.ErrorIs(t, s.Apply(bad), snapshot.ErrInvalidGraph)

	assert.Len(t, s.Stats(), 3)
	assert.Len(t, s.Layout().Graph().Edges, 3)
}

func TestRemoveNode_DropsTouchingEdges(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))
	s.Start()
	require.NoError(t, s.Renderer().ProcessStep())

	require.NoError(t, s.RemoveNode("c"))
	assert.Equal(t, []string{"a-b"}, edgeIDs(s.Stats()))

	g := s.Layout().Graph()
	require.Len(t, g.Nodes, 2)
	for _, n := range g.Nodes {
		assert.NotEqual(t, "c", n.ID)
	}
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "a-b", g.Edges[0].ID)
	assert.NoError(t, g.Validate())

	// Frames keep working: no handle points at the removed node.
	require.NoError(t, s.Renderer().ProcessStep())
	assert.True(t, s.Renderer().IsRunning())

	assert.ErrorIs(t, s.RemoveNode("c"), snapshot.ErrUnknownNode)
}

func TestRemoveEdge(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))
	s.Start()

	require.NoError(t, s.RemoveEdge("b-c"))
	assert.Equal(t, []string{"a-b", "c-a"}, edgeIDs(s.Stats()))
	require.NoError(t, s.Renderer().ProcessStep())

	assert.ErrorIs(t, s.RemoveEdge("b-c"), snapshot.ErrUnknownEdge)
}

func TestSetDimmed(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))

	require.NoError(t, s.SetDimmed("a-b", true))
	stats := s.Stats()
	assert.True(t, stats[0].Dimmed)
	assert.False(t, stats[1].Dimmed)

	assert.ErrorIs(t, s.SetDimmed("nope", true), snapshot.ErrUnknownEdge)
}

func TestSetViewport_AppliesToNextFrame(t *testing.T) {
	s, rec := newSession(t)
	require.NoError(t, s.Apply(triangle()))
	s.SetViewport(snapshot.Viewport{PanX: 10, PanY: 20, Zoom: 2})
	s.Start()
	require.NoError(t, s.Renderer().ProcessStep())

	ops := rec.Ops()
	require.NotEmpty(t, ops)
	assert.Equal(t, canvas.OpSetTransform, ops[0].Name)
	assert.Equal(t, []float64{2, 0, 0, 2, 10, 20}, ops[0].Args)
}

func TestMoveNode(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))
	require.NoError(t, s.MoveNode("b", 300, 40))

	g := s.Layout().Graph()
	assert.Equal(t, 300.0, g.Nodes[1].X)
	assert.Equal(t, 40.0, g.Nodes[1].Y)
	assert.ErrorIs(t, s.MoveNode("z", 0, 0), snapshot.ErrUnknownNode)
}

func TestDraw_PaintsBackdrop(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(triangle()))

	rec := canvas.NewRecording()
	s.Draw(rec.Context())
	assert.Equal(t, 3, canvas.Count(rec.Ops(), canvas.OpArc))
}
