package replay

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

func TestFilter_Empty_MatchesAll(t *testing.T) {
	f := Filter{}
	if !f.Match(snapshot.Edge{ID: "any", Source: "x", Target: "y"}) {
		t.Error("empty filter should match all edges")
	}
}

func TestFilter_Edges(t *testing.T) {
	f := Filter{Edges: []string{"a-b", "b-c"}}

	if !f.Match(snapshot.Edge{ID: "a-b"}) {
		t.Error("should match a-b")
	}
	if f.Match(snapshot.Edge{ID: "c-a"}) {
		t.Error("should not match c-a")
	}
}

func TestFilter_Nodes(t *testing.T) {
	f := Filter{Nodes: []string{"reviews"}}

	if !f.Match(snapshot.Edge{Source: "productpage", Target: "reviews-v2"}) {
		t.Error("should match an edge into reviews-v2")
	}
	if !f.Match(snapshot.Edge{Source: "reviews-v1", Target: "ratings"}) {
		t.Error("should match an edge out of reviews-v1")
	}
	if f.Match(snapshot.Edge{Source: "productpage", Target: "details"}) {
		t.Error("should not match productpage->details")
	}
}

func TestFilter_Protocols(t *testing.T) {
	f := Filter{Protocols: []traffic.Protocol{traffic.ProtocolTCP}}

	if !f.Match(snapshot.Edge{Protocol: string(traffic.ProtocolTCP)}) {
		t.Error("should match tcp")
	}
	if f.Match(snapshot.Edge{}) {
		t.Error("an edge without protocol is http and should not match")
	}
}

func TestFilter_Apply(t *testing.T) {
	g := snapshot.Graph{Edges: []snapshot.Edge{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	f := Filter{Edges: []string{"b"}}
	got := f.Apply(g)
	if len(got.Edges) != 1 || got.Edges[0].ID != "b" {
		t.Errorf("Apply = %+v, want only b", got.Edges)
	}
	if len(g.Edges) != 3 {
		t.Error("Apply should not modify its input")
	}

	f.DimOthers = true
	got = f.Apply(g)
	if len(got.Edges) != 3 {
		t.Fatalf("DimOthers should keep every edge, got %d", len(got.Edges))
	}
	if !got.Edges[0].Dimmed || got.Edges[1].Dimmed || !got.Edges[2].Dimmed {
		t.Errorf("only b should stay undimmed, got %+v", got.Edges)
	}
}

func TestFilter_Window(t *testing.T) {
	f := Filter{}
	if from, to := f.window(time.Minute); from != 0 || to != time.Minute {
		t.Errorf("window = %v..%v, want 0..1m", from, to)
	}

	f = Filter{From: -time.Second, To: 2 * time.Minute}
	if from, to := f.window(time.Minute); from != 0 || to != time.Minute {
		t.Errorf("window = %v..%v, want clamped 0..1m", from, to)
	}

	f = Filter{From: 10 * time.Second, To: 20 * time.Second}
	if from, to := f.window(time.Minute); from != 10*time.Second || to != 20*time.Second {
		t.Errorf("window = %v..%v, want 10s..20s", from, to)
	}
}
