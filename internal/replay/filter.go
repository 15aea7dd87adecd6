package replay

import (
	"strings"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// Filter selects the edges and the time window of a scenario to play.
type Filter struct {
	Edges     []string           // Only include these edge ids (empty = all)
	Nodes     []string           // Only include edges whose source or target contains one of these (empty = all)
	Protocols []traffic.Protocol // Only include these protocols (empty = all)
	From      time.Duration      // Start playing at this offset
	To        time.Duration      // Stop at this offset (zero = scenario length)
	// DimOthers keeps unmatched edges in the graph, dimmed, instead of
	// dropping them.
	DimOthers bool
}

// Match returns true if the edge passes the filter.
func (f *Filter) Match(e snapshot.Edge) bool {
	if len(f.Edges) > 0 && !contains(f.Edges, e.ID) {
		return false
	}
	if len(f.Nodes) > 0 && !matchNode(f.Nodes, e.Source) && !matchNode(f.Nodes, e.Target) {
		return false
	}
	if len(f.Protocols) > 0 && !containsProtocol(f.Protocols, e.ProtocolOrDefault()) {
		return false
	}
	return true
}

// Apply returns g with unmatched edges dropped, or dimmed with DimOthers.
// Nodes are kept.
func (f *Filter) Apply(g snapshot.Graph) snapshot.Graph {
	kept := make([]snapshot.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		switch {
		case f.Match(e):
		case f.DimOthers:
			e.Dimmed = true
		default:
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	return g
}

// window clamps From and To to a scenario of the given length.
func (f *Filter) window(length time.Duration) (time.Duration, time.Duration) {
	from, to := f.From, f.To
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > length {
		to = length
	}
	return from, to
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func containsProtocol(ps []traffic.Protocol, p traffic.Protocol) bool {
	for _, v := range ps {
		if v == p {
			return true
		}
	}
	return false
}

func matchNode(patterns []string, node string) bool {
	for _, p := range patterns {
		if p == node || strings.Contains(node, p) {
			return true
		}
	}
	return false
}
