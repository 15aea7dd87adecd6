package generate

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/pkg/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/pkg/traffic"
)

const (
	// PatternSteady keeps edge rates wandering around their starting value.
	PatternSteady = "steady"
	// PatternBurst breaks quiet periods with bursts at full rate.
	PatternBurst = "burst"
	// PatternRamp grows edge rates from idle to full over the scenario.
	PatternRamp = "ramp"
)

// DefaultProtocols is the protocol pool edges are drawn from when
// Options.Protocols is not provided.
var DefaultProtocols = []traffic.Protocol{traffic.ProtocolHTTP, traffic.ProtocolGRPC, traffic.ProtocolTCP}

// Options controls how a synthetic mesh scenario is generated.
type Options struct {
	Nodes     int
	Edges     int
	Duration  time.Duration
	Step      time.Duration // time between rate updates
	Pattern   string
	Seed      int64
	Protocols []traffic.Protocol
}

// DefaultOptions returns defaults aligned with the meshflow CLI.
func DefaultOptions() Options {
	return Options{
		Nodes:    5,
		Edges:    8,
		Duration: 30 * time.Second,
		Step:     time.Second,
		Pattern:  PatternSteady,
	}
}

// GenerateScenario creates a scenario with services laid out on a circle,
// connected in a ring plus random extra edges, and a rate update for every
// edge each Step. The same options and seed always yield the same scenario.
func GenerateScenario(opts *Options) (*snapshot.Scenario, error) {
	if opts == nil {
		return nil, errors.New("options are required")
	}
	if opts.Nodes < 2 {
		return nil, fmt.Errorf("need at least 2 nodes, got %d", opts.Nodes)
	}
	if opts.Edges < 1 {
		return nil, fmt.Errorf("need at least 1 edge, got %d", opts.Edges)
	}
	if limit := opts.Nodes * (opts.Nodes - 1); opts.Edges > limit {
		return nil, fmt.Errorf("%d nodes allow at most %d edges, got %d", opts.Nodes, limit, opts.Edges)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}
	if opts.Step <= 0 || opts.Step > opts.Duration {
		return nil, fmt.Errorf("step must be in (0, %s], got %s", opts.Duration, opts.Step)
	}

	pattern := opts.Pattern
	if pattern == "" {
		pattern = PatternSteady
	}
	var rate rateFunc
	switch pattern {
	case PatternSteady:
		rate = steadyRate
	case PatternBurst:
		rate = burstRate
	case PatternRamp:
		rate = rampRate
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}

	protocols := opts.Protocols
	if len(protocols) == 0 {
		protocols = DefaultProtocols
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	nodes := circleNodes(opts.Nodes)
	edges := randomEdges(rng, nodes, opts.Edges, protocols)

	steps := int(opts.Duration / opts.Step)
	base := make([]float64, len(edges))
	for i := range edges {
		base[i] = traffic.MaxRate * (0.2 + 0.6*rng.Float64())
		edges[i].Rate = snapshot.Float(math.Round(rate(rng, base[i], 0, steps)))
	}

	sc := &snapshot.Scenario{
		Name:     fmt.Sprintf("%s mesh, %d services", pattern, opts.Nodes),
		Duration: snapshot.Duration(opts.Duration),
		Graph: snapshot.Graph{
			Viewport: snapshot.Viewport{Zoom: 1},
			Nodes:    nodes,
			Edges:    edges,
		},
	}

	for step := 1; step < steps; step++ {
		u := snapshot.Update{At: snapshot.Duration(time.Duration(step) * opts.Step)}
		for i, e := range edges {
			// Updates replace the whole edge, so every attribute is repeated.
			e.Rate = snapshot.Float(math.Round(rate(rng, base[i], step, steps)))
			e.PercentErr = snapshot.Float(errorPercent(rng, pattern))
			u.Edges = append(u.Edges, e)
		}
		sc.Updates = append(sc.Updates, u)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

type rateFunc func(rng *rand.Rand, base float64, step, steps int) float64

// circleNodes places n services evenly on a circle.
func circleNodes(n int) []snapshot.Node {
	const cx, cy, radius = 400.0, 300.0, 220.0
	nodes := make([]snapshot.Node, n)
	for i := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		nodes[i] = snapshot.Node{
			ID: fmt.Sprintf("svc-%d", i+1),
			X:  math.Round(cx + radius*math.Cos(angle)),
			Y:  math.Round(cy + radius*math.Sin(angle)),
		}
	}
	return nodes
}

// randomEdges connects the nodes in a ring first, then adds random distinct
// directed edges until count is reached.
func randomEdges(rng *rand.Rand, nodes []snapshot.Node, count int, protocols []traffic.Protocol) []snapshot.Edge {
	seen := make(map[[2]int]bool, count)
	edges := make([]snapshot.Edge, 0, count)
	add := func(from, to int) {
		seen[[2]int{from, to}] = true
		src, dst := nodes[from].ID, nodes[to].ID
		edges = append(edges, snapshot.Edge{
			ID:       src + "->" + dst,
			Source:   src,
			Target:   dst,
			Protocol: string(protocols[rng.Intn(len(protocols))]),
			Latency:  snapshot.Float(math.Round((0.01+rng.Float64()*2)*1000) / 1000),
		})
	}

	for i := 0; i < len(nodes) && len(edges) < count; i++ {
		add(i, (i+1)%len(nodes))
	}
	for len(edges) < count {
		from, to := rng.Intn(len(nodes)), rng.Intn(len(nodes))
		if from == to || seen[[2]int{from, to}] {
			continue
		}
		add(from, to)
	}
	return edges
}

func steadyRate(rng *rand.Rand, base float64, _, _ int) float64 {
	return base * (0.9 + 0.2*rng.Float64())
}

// burstRate runs four bursts at full rate, each a tenth of the scenario
// long, over a low background rate.
func burstRate(rng *rand.Rand, base float64, step, steps int) float64 {
	const numBursts = 4
	period := max(steps/numBursts, 1)
	width := max(period/10, 1)
	if step%period < width {
		return traffic.MaxRate
	}
	return base * 0.1 * (0.5 + rng.Float64())
}

// rampRate grows quadratically, concentrating traffic towards the end.
func rampRate(_ *rand.Rand, _ float64, step, steps int) float64 {
	frac := float64(step+1) / float64(steps)
	return traffic.MaxRate * frac * frac
}

func errorPercent(rng *rand.Rand, pattern string) float64 {
	p := rng.Float64() * 2
	if pattern == PatternBurst && rng.Intn(4) == 0 {
		p += 10 + rng.Float64()*20
	}
	return math.Round(p*10) / 10
}
