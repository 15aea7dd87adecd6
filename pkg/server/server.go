package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	internalserver "github.com/SmitUplenchwar2687/meshflow/internal/server"
	"github.com/SmitUplenchwar2687/meshflow/pkg/clock"
	"github.com/SmitUplenchwar2687/meshflow/pkg/recorder"
	"github.com/SmitUplenchwar2687/meshflow/pkg/session"
)

// Server is the meshflow HTTP API around a running session.
type Server = internalserver.Server

// Option configures optional server features.
type Option = internalserver.Option

// Hub streams frames to WebSocket clients.
type Hub = internalserver.Hub

// Message is one payload pushed to WebSocket clients.
type Message = internalserver.Message

// OpsSource provides the display list of the last frame.
type OpsSource = internalserver.OpsSource

// DashboardHTML is the embedded single-page dashboard.
const DashboardHTML = internalserver.DashboardHTML

// New creates a server for sess.
func New(addr string, sess *session.Session, clk clock.Clock, opts ...Option) *Server {
	return internalserver.New(addr, sess, clk, opts...)
}

// NewHub creates a WebSocket hub streaming the display lists of ops.
func NewHub(ops OpsSource) *Hub {
	return internalserver.NewHub(ops)
}

// WithHub enables /ws and /dashboard.
func WithHub(h *Hub) Option {
	return internalserver.WithHub(h)
}

// WithRecorder enables /api/frames and its export.
func WithRecorder(rec *recorder.Recorder) Option {
	return internalserver.WithRecorder(rec)
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return internalserver.WithMetrics(g)
}

// LoggingMiddleware tags each request with an id and logs it once served.
func LoggingMiddleware(next http.Handler, clk clock.Clock) http.Handler {
	return internalserver.LoggingMiddleware(next, clk)
}
