// Package snapshot is the topology graph the traffic engine animates: the
// JSON/YAML snapshot format, the in-memory layout that hands out edge
// handles, and timed scenarios built from a sequence of snapshots.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// DefaultWindow is the sampling window used to turn L7 counts into a rate
// when a snapshot does not set one.
const DefaultWindow = time.Minute

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Graph is one topology snapshot.
type Graph struct {
	Window   Duration `json:"window,omitempty" yaml:"window,omitempty"`
	Viewport Viewport `json:"viewport" yaml:"viewport"`
	Nodes    []Node   `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges    []Edge   `json:"edges" yaml:"edges" validate:"dive"`
}

// Viewport is the host pan and zoom.
type Viewport struct {
	PanX float64 `json:"pan_x" yaml:"pan_x"`
	PanY float64 `json:"pan_y" yaml:"pan_y"`
	Zoom float64 `json:"zoom" yaml:"zoom" validate:"gte=0"`
}

// Transform converts the viewport to a canvas transform. A zero zoom is 1.
func (v Viewport) Transform() canvas.Transform {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return canvas.Transform{Pan: canvas.Vec{X: v.PanX, Y: v.PanY}, Zoom: zoom}
}

// Node is a positioned workload in the graph.
type Node struct {
	ID    string  `json:"id" yaml:"id" validate:"required"`
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// Edge is a directed connection with its live metrics. Rate, Latency and
// PercentErr are optional; when absent they are derived from L7, and when
// that is absent too they are reported as unknown.
type Edge struct {
	ID         string   `json:"id" yaml:"id" validate:"required"`
	Source     string   `json:"source" yaml:"source" validate:"required"`
	Target     string   `json:"target" yaml:"target" validate:"required"`
	Protocol   string   `json:"protocol,omitempty" yaml:"protocol,omitempty" validate:"omitempty,oneof=http grpc tcp"`
	Color      string   `json:"color,omitempty" yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	Dimmed     bool     `json:"dimmed,omitempty" yaml:"dimmed,omitempty"`
	Rate       *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Latency    *float64 `json:"latency,omitempty" yaml:"latency,omitempty"`
	PercentErr *float64 `json:"percent_err,omitempty" yaml:"percent_err,omitempty"`
	L7         *L7Stats `json:"l7,omitempty" yaml:"l7,omitempty"`
}

// DefaultEdgeColor is used for edges without a color.
const DefaultEdgeColor = "#3f9c35"

// Metrics resolves the edge's metrics over the given sampling window.
func (e Edge) Metrics(window time.Duration) traffic.Metrics {
	m := traffic.NoMetrics()
	if e.L7 != nil {
		m = e.L7.Metrics(window)
	}
	if e.Rate != nil {
		m.Rate = *e.Rate
	}
	if e.Latency != nil {
		m.Latency = *e.Latency
	}
	if e.PercentErr != nil {
		m.PercentErr = *e.PercentErr
	}
	return m
}

// ProtocolOrDefault returns the edge protocol, http when unset.
func (e Edge) ProtocolOrDefault() traffic.Protocol {
	if e.Protocol == "" {
		return traffic.ProtocolHTTP
	}
	return traffic.Protocol(e.Protocol)
}

// ColorOrDefault returns the edge color, DefaultEdgeColor when unset.
func (e Edge) ColorOrDefault() string {
	if e.Color == "" {
		return DefaultEdgeColor
	}
	return e.Color
}

// WindowOrDefault returns the snapshot sampling window.
func (g Graph) WindowOrDefault() time.Duration {
	if g.Window <= 0 {
		return DefaultWindow
	}
	return time.Duration(g.Window)
}

// Float returns a pointer to v, for building edges in code.
func Float(v float64) *float64 {
	return &v
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ErrInvalidGraph wraps every validation failure.
var ErrInvalidGraph = errors.New("invalid graph")

// Validate checks field constraints, id uniqueness and that every edge
// connects known nodes.
func (g Graph) Validate() error {
	if err := validate.Struct(g); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidGraph, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}

	nodes := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, n.ID)
		}
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			return fmt.Errorf("%w: node %q has no position", ErrInvalidGraph, n.ID)
		}
		nodes[n.ID] = struct{}{}
	}

	edges := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if _, dup := edges[e.ID]; dup {
			return fmt.Errorf("%w: duplicate edge %q", ErrInvalidGraph, e.ID)
		}
		edges[e.ID] = struct{}{}
		if _, ok := nodes[e.Source]; !ok {
			return fmt.Errorf("%w: edge %q source %q is not a node", ErrInvalidGraph, e.ID, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return fmt.Errorf("%w: edge %q target %q is not a node", ErrInvalidGraph, e.ID, e.Target)
		}
	}
	return nil
}

// Decode reads and validates a graph.
func Decode(r io.Reader, format Format) (Graph, error) {
	var g Graph
	if err := decode(r, format, &g); err != nil {
		return Graph{}, fmt.Errorf("parsing graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Load reads and validates a graph file.
func Load(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Graph{}, fmt.Errorf("reading graph file: %w", err)
	}
	return Decode(bytes.NewReader(data), FormatFromPath(path))
}

// Encode writes g in the given format.
func Encode(w io.Writer, g Graph, format Format) error {
	return encode(w, format, g)
}

func decode(r io.Reader, format Format, v any) error {
	switch format {
	case FormatYAML:
		return yaml.NewDecoder(r).Decode(v)
	case FormatJSON, "":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Duration is a time.Duration written as a Go duration string ("1.5s") in
// JSON and YAML. Plain numbers are read as seconds.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("parsing duration: %w", err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(x * float64(time.Second))
	case int:
		*d = Duration(time.Duration(x) * time.Second)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}
