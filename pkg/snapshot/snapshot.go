// Package snapshot exposes the mesh topology format: graphs, timed
// scenarios and the live layout that feeds edges to a traffic renderer.
package snapshot

import (
	"io"

	internalsnapshot "github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
)

type (
	Graph         = internalsnapshot.Graph
	Viewport      = internalsnapshot.Viewport
	Node          = internalsnapshot.Node
	Edge          = internalsnapshot.Edge
	L7Stats       = internalsnapshot.L7Stats
	L7PacketStats = internalsnapshot.L7PacketStats
	Scenario      = internalsnapshot.Scenario
	Update        = internalsnapshot.Update
	Duration      = internalsnapshot.Duration
	Format        = internalsnapshot.Format
	Layout        = internalsnapshot.Layout
)

const (
	FormatJSON       = internalsnapshot.FormatJSON
	FormatYAML       = internalsnapshot.FormatYAML
	DefaultWindow    = internalsnapshot.DefaultWindow
	DefaultEdgeColor = internalsnapshot.DefaultEdgeColor
)

var (
	ErrInvalidGraph = internalsnapshot.ErrInvalidGraph
	ErrUnknownEdge  = internalsnapshot.ErrUnknownEdge
	ErrUnknownNode  = internalsnapshot.ErrUnknownNode
)

// Float returns a pointer to v, for optional edge metrics.
func Float(v float64) *float64 {
	return internalsnapshot.Float(v)
}

// FormatFromPath picks YAML for .yaml/.yml and JSON otherwise.
func FormatFromPath(path string) Format {
	return internalsnapshot.FormatFromPath(path)
}

// NewLayout creates an empty live graph.
func NewLayout() *Layout {
	return internalsnapshot.NewLayout()
}

// Decode reads and validates a graph.
func Decode(r io.Reader, format Format) (Graph, error) {
	return internalsnapshot.Decode(r, format)
}

// Load reads a graph file, choosing the format by extension.
func Load(path string) (Graph, error) {
	return internalsnapshot.Load(path)
}

func Encode(w io.Writer, g Graph, format Format) error {
	return internalsnapshot.Encode(w, g, format)
}

// DecodeScenario reads and validates a scenario.
func DecodeScenario(r io.Reader, format Format) (*Scenario, error) {
	return internalsnapshot.DecodeScenario(r, format)
}

// LoadScenario reads a scenario file, choosing the format by extension.
func LoadScenario(path string) (*Scenario, error) {
	return internalsnapshot.LoadScenario(path)
}

func EncodeScenario(w io.Writer, s *Scenario, format Format) error {
	return internalsnapshot.EncodeScenario(w, s, format)
}

// WriteScenarioFile writes s to path in the format its extension implies.
func WriteScenarioFile(path string, s *Scenario) error {
	return internalsnapshot.WriteScenarioFile(path, s)
}
