package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/metrics"
	"github.com/SmitUplenchwar2687/meshflow/internal/recorder"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// maxGraphBytes bounds POST /api/graph bodies.
const maxGraphBytes = 4 << 20

// Server exposes a session over HTTP: graph updates in, engine control,
// stats, recorded frames, and a WebSocket stream of display lists.
type Server struct {
	httpServer *http.Server
	session    *session.Session
	clock      clock.Clock
	mux        *http.ServeMux

	hub      *Hub
	recorder *recorder.Recorder
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithHub serves /ws and the live dashboard from h.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithRecorder serves recorded frames from rec on /api/frames.
func WithRecorder(rec *recorder.Recorder) Option {
	return func(s *Server) { s.recorder = rec }
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a new meshflow server.
func New(addr string, sess *session.Session, clk clock.Clock, opts ...Option) *Server {
	s := &Server{
		session: sess,
		clock:   clk,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(s.mux, clk),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/graph", s.handleGetGraph)
	s.mux.HandleFunc("POST /api/graph", s.handlePostGraph)
	s.mux.HandleFunc("PUT /api/viewport", s.handleViewport)
	s.mux.HandleFunc("POST /api/edges/{id}/dim", s.handleDim(true))
	s.mux.HandleFunc("POST /api/edges/{id}/undim", s.handleDim(false))
	s.mux.HandleFunc("DELETE /api/edges/{id}", s.handleRemoveEdge)
	s.mux.HandleFunc("PUT /api/nodes/{id}", s.handleMoveNode)
	s.mux.HandleFunc("DELETE /api/nodes/{id}", s.handleRemoveNode)

	s.mux.HandleFunc("POST /api/engine/start", s.handleStart)
	s.mux.HandleFunc("POST /api/engine/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/engine/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	if s.recorder != nil {
		s.mux.HandleFunc("GET /api/frames", s.handleFrames)
		s.mux.HandleFunc("GET /api/frames/export", s.handleExport)
	}
	if s.hub != nil {
		s.mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
		s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	}
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
	}
}

// handleRoot serves a welcome message.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "meshflow",
		"running": s.session.Renderer().IsRunning(),
		"time":    s.clock.Now().Format(time.RFC3339),
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Layout().Graph())
}

// handlePostGraph replaces the graph. Bodies are JSON unless the content
// type names YAML.
func (s *Server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	format := snapshot.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = snapshot.FormatYAML
	}

	g, err := snapshot.Decode(http.MaxBytesReader(w, r.Body, maxGraphBytes), format)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, snapshot.ErrInvalidGraph) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	if err := s.session.Apply(g); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastBackdrop()
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var v snapshot.Viewport
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if v.Zoom < 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("zoom must not be negative, got %g", v.Zoom))
		return
	}
	s.session.SetViewport(v)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDim(dimmed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.SetDimmed(r.PathValue("id"), dimmed); err != nil {
			writeLookupError(w, err)
			return
		}
		s.afterGraphEdit(w)
	}
}

func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveEdge(r.PathValue("id")); err != nil {
		writeLookupError(w, err)
		return
	}
	s.afterGraphEdit(w)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var pos struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&pos); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if pos.X == nil || pos.Y == nil {
		writeError(w, http.StatusBadRequest, errors.New("x and y are required"))
		return
	}
	if err := s.session.MoveNode(r.PathValue("id"), *pos.X, *pos.Y); err != nil {
		writeLookupError(w, err)
		return
	}
	s.afterGraphEdit(w)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveNode(r.PathValue("id")); err != nil {
		writeLookupError(w, err)
		return
	}
	s.afterGraphEdit(w)
}

func (s *Server) afterGraphEdit(w http.ResponseWriter) {
	if s.hub != nil {
		s.hub.BroadcastBackdrop()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.session.Start()
	s.handleStats(w, r)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	s.handleStats(w, r)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Renderer().Clear()
	s.handleStats(w, r)
}

// EngineStatus is the body of the engine and stats endpoints.
type EngineStatus struct {
	Running  bool                `json:"running"`
	Error    string              `json:"error,omitempty"`
	Interval time.Duration       `json:"interval"`
	Clients  int                 `json:"clients"`
	Edges    []traffic.EdgeStats `json:"edges"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rd := s.session.Renderer()
	status := EngineStatus{
		Running:  rd.IsRunning(),
		Interval: rd.Interval(),
		Edges:    rd.Stats(),
	}
	if err := rd.Err(); err != nil {
		status.Error = err.Error()
	}
	if s.hub != nil {
		status.Clients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleFrames returns the most recent recorded frames. ?limit=N caps the
// count; ?ops=false drops display lists.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	records := s.recorder.Records()

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		if n < len(records) {
			records = records[len(records)-n:]
		}
	}
	if r.URL.Query().Get("ops") == "false" {
		for i := range records {
			records[i].Ops = nil
		}
	}
	if records == nil {
		records = []recorder.FrameRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleExport streams every recorded frame. ?codec=json|msgpack and
// ?compression=none|zstd pick the format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f := recorder.Format{
		Codec:       recorder.Codec(r.URL.Query().Get("codec")),
		Compression: recorder.Compression(r.URL.Query().Get("compression")),
	}
	if f.Codec == "" {
		f.Codec = recorder.CodecJSON
	}
	if f.Compression == "" {
		f.Compression = recorder.CompressionNone
	}
	if err := f.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="frames%s"`, f.Ext()))
	if err := s.recorder.Export(w, f); err != nil {
		log.WithError(err).Warn("frame export failed")
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(DashboardHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeLookupError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, snapshot.ErrUnknownEdge) || errors.Is(err, snapshot.ErrUnknownNode) {
		status = http.StatusNotFound
	}
	writeError(w, status, err)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	log.WithField("addr", ln.Addr().String()).Info("meshflow server listening")
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server and closes WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
