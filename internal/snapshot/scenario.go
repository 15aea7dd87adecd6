package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Scenario is a starting graph plus edge updates applied at fixed offsets.
type Scenario struct {
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Graph    Graph    `json:"graph" yaml:"graph"`
	Updates  []Update `json:"updates,omitempty" yaml:"updates,omitempty"`
}

// Update changes the graph At an offset from the scenario start. Edges are
// merged by id: a known id is replaced, keeping its source and target when
// the update leaves them empty; an unknown id is added. Remove drops edges.
type Update struct {
	At     Duration `json:"at" yaml:"at"`
	Edges  []Edge   `json:"edges,omitempty" yaml:"edges,omitempty"`
	Remove []string `json:"remove,omitempty" yaml:"remove,omitempty"`
	Dim    []string `json:"dim,omitempty" yaml:"dim,omitempty"`
	Undim  []string `json:"undim,omitempty" yaml:"undim,omitempty"`
}

// Validate checks the starting graph and every intermediate graph.
func (s *Scenario) Validate() error {
	if err := s.Graph.Validate(); err != nil {
		return fmt.Errorf("scenario graph: %w", err)
	}
	g := cloneGraph(s.Graph)
	for i, u := range s.sortedUpdates() {
		if u.At < 0 {
			return fmt.Errorf("%w: update %d has negative offset %s", ErrInvalidGraph, i, u.At)
		}
		g = apply(g, u)
		if err := g.Validate(); err != nil {
			return fmt.Errorf("scenario update at %s: %w", u.At, err)
		}
	}
	return nil
}

// Length is the declared duration, or the last update offset when unset.
func (s *Scenario) Length() time.Duration {
	if s.Duration > 0 {
		return time.Duration(s.Duration)
	}
	var last Duration
	for _, u := range s.Updates {
		if u.At > last {
			last = u.At
		}
	}
	return time.Duration(last)
}

// At returns the graph as of offset t: the starting graph with every update
// whose offset is <= t applied in offset order.
func (s *Scenario) At(t time.Duration) Graph {
	g := cloneGraph(s.Graph)
	for _, u := range s.sortedUpdates() {
		if time.Duration(u.At) > t {
			break
		}
		g = apply(g, u)
	}
	return g
}

// Offsets returns the distinct update offsets in ascending order.
func (s *Scenario) Offsets() []time.Duration {
	var out []time.Duration
	for _, u := range s.sortedUpdates() {
		d := time.Duration(u.At)
		if len(out) == 0 || out[len(out)-1] != d {
			out = append(out, d)
		}
	}
	return out
}

func (s *Scenario) sortedUpdates() []Update {
	out := append([]Update(nil), s.Updates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

func apply(g Graph, u Update) Graph {
	index := make(map[string]int, len(g.Edges))
	for i, e := range g.Edges {
		index[e.ID] = i
	}

	for _, e := range u.Edges {
		e = cloneEdge(e)
		if i, ok := index[e.ID]; ok {
			if e.Source == "" {
				e.Source = g.Edges[i].Source
			}
			if e.Target == "" {
				e.Target = g.Edges[i].Target
			}
			g.Edges[i] = e
			continue
		}
		index[e.ID] = len(g.Edges)
		g.Edges = append(g.Edges, e)
	}

	setDimmed := func(ids []string, dimmed bool) {
		for _, id := range ids {
			if i, ok := index[id]; ok {
				g.Edges[i].Dimmed = dimmed
			}
		}
	}
	setDimmed(u.Dim, true)
	setDimmed(u.Undim, false)

	if len(u.Remove) > 0 {
		drop := make(map[string]bool, len(u.Remove))
		for _, id := range u.Remove {
			drop[id] = true
		}
		kept := g.Edges[:0]
		for _, e := range g.Edges {
			if !drop[e.ID] {
				kept = append(kept, e)
			}
		}
		g.Edges = kept
	}
	return g
}

// DecodeScenario reads and validates a scenario.
func DecodeScenario(r io.Reader, format Format) (*Scenario, error) {
	var s Scenario
	if err := decode(r, format, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return DecodeScenario(bytes.NewReader(data), FormatFromPath(path))
}

// EncodeScenario writes s in the given format.
func EncodeScenario(w io.Writer, s *Scenario, format Format) error {
	return encode(w, format, s)
}

// WriteScenarioFile writes s to path, picking the format from the extension.
func WriteScenarioFile(path string, s *Scenario) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating scenario file: %w", err)
	}
	defer f.Close()
	return EncodeScenario(f, s, FormatFromPath(path))
}
