package snapshot

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

var (
	// ErrUnknownEdge is returned through a handle whose edge left the graph.
	ErrUnknownEdge = errors.New("unknown edge")
	// ErrUnknownNode is returned when an edge endpoint left the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Layout is the live host graph. It owns node positions and edge
// attributes and hands the engine borrowed edge handles that read through
// to it on every call. Safe for concurrent use.
type Layout struct {
	mu    sync.RWMutex
	graph Graph
	nodes map[string]int
	edges map[string]int
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{
		nodes: make(map[string]int),
		edges: make(map[string]int),
	}
}

// Update validates g, makes it the current graph and returns handles for
// its edges in snapshot order.
func (l *Layout) Update(g Graph) ([]traffic.Edge, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.graph = cloneGraph(g)
	l.reindex()
	l.mu.Unlock()

	return l.Edges(), nil
}

// Edges returns handles for the current edges.
func (l *Layout) Edges() []traffic.Edge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]traffic.Edge, 0, len(l.graph.Edges))
	for _, e := range l.graph.Edges {
		out = append(out, &edgeHandle{layout: l, id: e.ID})
	}
	return out
}

// Graph returns a copy of the current graph.
func (l *Layout) Graph() Graph {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneGraph(l.graph)
}

// Transform implements traffic.Viewport.
func (l *Layout) Transform() canvas.Transform {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.graph.Viewport.Transform()
}

// SetViewport changes pan and zoom.
func (l *Layout) SetViewport(v Viewport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graph.Viewport = v
}

// SetDimmed de-emphasizes an edge. Its points keep moving but are not drawn.
func (l *Layout) SetDimmed(edgeID string, dimmed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.edges[edgeID]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownEdge, edgeID)
	}
	l.graph.Edges[i].Dimmed = dimmed
	return nil
}

// MoveNode repositions a node.
func (l *Layout) MoveNode(nodeID string, x, y float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, nodeID)
	}
	l.graph.Nodes[i].X = x
	l.graph.Nodes[i].Y = y
	return nil
}

// RemoveNode drops a node but leaves its edges in place, so their handles
// fail with ErrUnknownNode until they are removed or the next Update.
// Session.RemoveNode follows it with RemoveEdge for each touching edge.
func (l *Layout) RemoveNode(nodeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownNode, nodeID)
	}
	l.graph.Nodes = append(l.graph.Nodes[:i], l.graph.Nodes[i+1:]...)
	l.reindex()
	return nil
}

// RemoveEdge drops an edge. Handles to it fail from then on.
func (l *Layout) RemoveEdge(edgeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.edges[edgeID]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownEdge, edgeID)
	}
	l.graph.Edges = append(l.graph.Edges[:i], l.graph.Edges[i+1:]...)
	l.reindex()
	return nil
}

// reindex must be called with l.mu held.
func (l *Layout) reindex() {
	l.nodes = make(map[string]int, len(l.graph.Nodes))
	for i, n := range l.graph.Nodes {
		l.nodes[n.ID] = i
	}
	l.edges = make(map[string]int, len(l.graph.Edges))
	for i, e := range l.graph.Edges {
		l.edges[e.ID] = i
	}
}

func (l *Layout) edge(id string) (Edge, bool) {
	i, ok := l.edges[id]
	if !ok {
		return Edge{}, false
	}
	return l.graph.Edges[i], true
}

func (l *Layout) position(nodeID string) (canvas.Vec, error) {
	i, ok := l.nodes[nodeID]
	if !ok {
		return canvas.Vec{}, fmt.Errorf("%w %q", ErrUnknownNode, nodeID)
	}
	n := l.graph.Nodes[i]
	return canvas.Vec{X: n.X, Y: n.Y}, nil
}

// edgeHandle is a traffic.Edge that reads through to the layout by id.
type edgeHandle struct {
	layout *Layout
	id     string
}

func (h *edgeHandle) ID() string { return h.id }

func (h *edgeHandle) Metrics() traffic.Metrics {
	h.layout.mu.RLock()
	defer h.layout.mu.RUnlock()

	e, ok := h.layout.edge(h.id)
	if !ok {
		return traffic.NoMetrics()
	}
	return e.Metrics(h.layout.graph.WindowOrDefault())
}

func (h *edgeHandle) Protocol() traffic.Protocol {
	h.layout.mu.RLock()
	defer h.layout.mu.RUnlock()

	e, _ := h.layout.edge(h.id)
	return e.ProtocolOrDefault()
}

func (h *edgeHandle) Dimmed() bool {
	h.layout.mu.RLock()
	defer h.layout.mu.RUnlock()

	e, _ := h.layout.edge(h.id)
	return e.Dimmed
}

func (h *edgeHandle) Color() string {
	h.layout.mu.RLock()
	defer h.layout.mu.RUnlock()

	e, _ := h.layout.edge(h.id)
	return e.ColorOrDefault()
}

func (h *edgeHandle) Endpoints() (canvas.Vec, canvas.Vec, error) {
	h.layout.mu.RLock()
	defer h.layout.mu.RUnlock()

	e, ok := h.layout.edge(h.id)
	if !ok {
		return canvas.Vec{}, canvas.Vec{}, fmt.Errorf("%w %q", ErrUnknownEdge, h.id)
	}
	from, err := h.layout.position(e.Source)
	if err != nil {
		return canvas.Vec{}, canvas.Vec{}, fmt.Errorf("edge %q: %w", h.id, err)
	}
	to, err := h.layout.position(e.Target)
	if err != nil {
		return canvas.Vec{}, canvas.Vec{}, fmt.Errorf("edge %q: %w", h.id, err)
	}
	return from, to, nil
}

// Draw paints the graph itself: edges as lines in their color, nodes as
// circles. Dimmed edges are drawn thinner.
func (l *Layout) Draw(ctx canvas.Context) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.graph.Edges {
		from, err1 := l.position(e.Source)
		to, err2 := l.position(e.Target)
		if err1 != nil || err2 != nil {
			continue
		}
		c, err := canvas.ParseColor(e.ColorOrDefault())
		if err != nil {
			continue
		}
		width := 2.0
		if e.Dimmed {
			width = 0.5
		}
		ctx.BeginPath()
		ctx.MoveTo(from.X, from.Y)
		ctx.LineTo(to.X, to.Y)
		ctx.SetStrokeColor(c)
		ctx.SetLineWidth(width)
		ctx.Stroke()
	}

	for _, n := range l.graph.Nodes {
		ctx.BeginPath()
		ctx.Arc(n.X, n.Y, nodeRadius, 0, 2*math.Pi)
		ctx.ClosePath()
		ctx.SetFillColor(nodeFill)
		ctx.Fill()
		ctx.SetStrokeColor(nodeStroke)
		ctx.SetLineWidth(1.5)
		ctx.Stroke()
	}
}

const nodeRadius = 8

var (
	nodeFill   = canvas.MustColor("#ffffff")
	nodeStroke = canvas.MustColor("#6a6e73")
)

func cloneGraph(g Graph) Graph {
	out := g
	out.Nodes = append([]Node(nil), g.Nodes...)
	out.Edges = make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		out.Edges[i] = cloneEdge(e)
	}
	return out
}

func cloneEdge(e Edge) Edge {
	out := e
	out.Rate = cloneFloat(e.Rate)
	out.Latency = cloneFloat(e.Latency)
	out.PercentErr = cloneFloat(e.PercentErr)
	if e.L7 != nil {
		l7 := *e.L7
		out.L7 = &l7
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
