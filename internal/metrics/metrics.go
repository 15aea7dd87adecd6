// Package metrics exports traffic engine frame statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

const (
	namespace = "meshflow"
	labelEdge = "edge"
)

// StatsSource provides per-edge counters, normally a *traffic.Renderer.
type StatsSource interface {
	Stats() []traffic.EdgeStats
}

// Collector turns engine frames into Prometheus metrics. It implements
// traffic.FrameObserver.
type Collector struct {
	frames       prometheus.Counter
	failures     prometheus.Counter
	spawned      prometheus.Counter
	finished     prometheus.Counter
	elapsed      prometheus.Histogram
	edges        prometheus.Gauge
	inFlight     prometheus.Gauge
	edgeInFlight *prometheus.GaugeVec

	stats StatsSource
}

// NewCollector creates the collector's metrics. Nothing is registered until
// Register is called.
func NewCollector() *Collector {
	return &Collector{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames rendered.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_failures_total",
			Help:      "Total number of frames that failed and stopped the engine.",
		}),
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_spawned_total",
			Help:      "Total number of traffic points spawned.",
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_finished_total",
			Help:      "Total number of traffic points that reached the end of their edge.",
		}),
		elapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_elapsed_seconds",
			Help:      "Time between consecutive frames.",
			Buckets:   []float64{0.008, 0.016, 0.017, 0.025, 0.033, 0.05, 0.1, 0.25},
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Number of edges registered with the engine.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "points_in_flight",
			Help:      "Number of traffic points currently on screen or dimmed.",
		}),
		edgeInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edge_points_in_flight",
			Help:      "Number of traffic points in flight per edge.",
		}, []string{labelEdge}),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.frames, c.failures, c.spawned, c.finished,
		c.elapsed, c.edges, c.inFlight, c.edgeInFlight,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Bind enables per-edge metrics from the given source.
func (c *Collector) Bind(stats StatsSource) {
	c.stats = stats
}

// ObserveFrame implements traffic.FrameObserver.
func (c *Collector) ObserveFrame(f traffic.Frame) {
	c.frames.Inc()
	c.spawned.Add(float64(f.Spawned))
	c.finished.Add(float64(f.Finished))
	c.elapsed.Observe(f.Elapsed.Seconds())
	c.edges.Set(float64(f.Edges))
	c.inFlight.Set(float64(f.Points))

	if c.stats == nil {
		return
	}
	c.edgeInFlight.Reset()
	for _, s := range c.stats.Stats() {
		c.edgeInFlight.WithLabelValues(s.ID).Set(float64(s.InFlight))
	}
}

// ObserveError counts a failed frame.
func (c *Collector) ObserveError(err error) {
	log.WithError(err).Debug("counting failed frame")
	c.failures.Inc()
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
