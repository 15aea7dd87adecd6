package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/metrics"
	"github.com/SmitUplenchwar2687/meshflow/internal/recorder"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const graphJSON = `{
  "nodes": [{"id": "a"}, {"id": "b", "x": 100}, {"id": "c", "y": 100}],
  "edges": [
    {"id": "a-b", "source": "a", "target": "b", "rate": 750},
    {"id": "b-c", "source": "b", "target": "c", "rate": 750, "percent_err": 50}
  ]
}`

type testEnv struct {
	baseURL string
	session *session.Session
	hub     *Hub
	rec     *recorder.Recorder
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	vc := clock.NewVirtualClock(epoch)
	surface := canvas.NewRecording()
	hub := NewHub(surface)
	rec := recorder.New(nil)
	obs := recorder.NewObserver(rec, nil, surface)
	collector := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Engine
	cfg.Seed = 3
	sess, err := session.New(surface, cfg,
		traffic.WithClock(vc),
		traffic.WithObserver(hub),
		traffic.WithObserver(obs),
		traffic.WithObserver(collector),
		traffic.WithErrorHandler(hub.NotifyStopped),
	)
	if err != nil {
		t.Fatal(err)
	}
	hub.Bind(sess)
	obs.Bind(sess)
	collector.Bind(sess)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(ln.Addr().String(), sess, vc, WithHub(hub), WithRecorder(rec), WithMetrics(reg))
	go srv.StartOnListener(ln)
	t.Cleanup(func() {
		sess.Stop()
		srv.Shutdown(context.Background())
	})
	return &testEnv{
		baseURL: "http://" + ln.Addr().String(),
		session: sess,
		hub:     hub,
		rec:     rec,
	}
}

func (e *testEnv) do(t *testing.T, method, path, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.baseURL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postGraph(t *testing.T) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/graph", "application/json", graphJSON)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST /api/graph: status = %d, body = %s", resp.StatusCode, body)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestServer_Root(t *testing.T) {
	env := startTestServer(t)

	resp := env.do(t, http.MethodGet, "/", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	decodeJSON(t, resp, &body)
	if body["service"] != "meshflow" {
		t.Errorf("service = %v, want meshflow", body["service"])
	}
	if body["running"] != false {
		t.Errorf("running = %v, want false", body["running"])
	}
}

func TestServer_Health(t *testing.T) {
	env := startTestServer(t)

	resp := env.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

func TestServer_NotFound(t *testing.T) {
	env := startTestServer(t)

	resp := env.do(t, http.MethodGet, "/nonexistent", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := startTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/"},
		{http.MethodDelete, "/api/graph"},
		{http.MethodGet, "/api/viewport"},
	} {
		resp := env.do(t, tc.method, tc.path, "", "")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestServer_PostGraph(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)

	resp := env.do(t, http.MethodGet, "/api/graph", "", "")
	var g snapshot.Graph
	decodeJSON(t, resp, &g)
	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Errorf("graph has %d nodes, %d edges; want 3, 2", len(g.Nodes), len(g.Edges))
	}

	var status EngineStatus
	decodeJSON(t, env.do(t, http.MethodGet, "/api/stats", "", ""), &status)
	if len(status.Edges) != 2 {
		t.Errorf("stats has %d edges, want 2", len(status.Edges))
	}
}

func TestServer_PostGraph_YAML(t *testing.T) {
	env := startTestServer(t)

	body := "nodes:\n  - id: a\n  - id: b\nedges:\n  - id: a-b\n    source: a\n    target: b\n    protocol: tcp\n"
	resp := env.do(t, http.MethodPost, "/api/graph", "application/yaml", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if n := len(env.session.Stats()); n != 1 {
		t.Errorf("session has %d edges, want 1", n)
	}
}

func TestServer_PostGraph_Invalid(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)

	bad := `{"nodes": [{"id": "a"}], "edges": [{"id": "a-x", "source": "a", "target": "x"}]}`
	resp := env.do(t, http.MethodPost, "/api/graph", "application/json", bad)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	if n := len(env.session.Stats()); n != 2 {
		t.Errorf("rejected graph replaced the current one, %d edges", n)
	}

	resp = env.do(t, http.MethodPost, "/api/graph", "application/json", `{"nodes": [{"id": "a"}, {"id": "a"}]}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("duplicate node: status = %d, want 422", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/graph", "application/json", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_EngineStartStop(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)

	var status EngineStatus
	decodeJSON(t, env.do(t, http.MethodPost, "/api/engine/start", "", ""), &status)
	if !status.Running {
		t.Error("engine should be running after start")
	}

	decodeJSON(t, env.do(t, http.MethodPost, "/api/engine/stop", "", ""), &status)
	if status.Running {
		t.Error("engine should be stopped after stop")
	}

	resp := env.do(t, http.MethodGet, "/api/engine/start", "", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET start: status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_DimEdge(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)

	resp := env.do(t, http.MethodPost, "/api/edges/a-b/dim", "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if !env.session.Stats()[0].Dimmed {
		t.Error("a-b should be dimmed")
	}

	env.do(t, http.MethodPost, "/api/edges/a-b/undim", "", "")
	if env.session.Stats()[0].Dimmed {
		t.Error("a-b should be undimmed")
	}

	resp = env.do(t, http.MethodPost, "/api/edges/nope/dim", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown edge: status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_EditNodesAndEdges(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)

	resp := env.do(t, http.MethodPut, "/api/nodes/b", "application/json", `{"x": 250, "y": 10}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("move: status = %d, want 204", resp.StatusCode)
	}
	if g := env.session.Layout().Graph(); g.Nodes[1].X != 250 {
		t.Errorf("b.x = %v, want 250", g.Nodes[1].X)
	}

	resp = env.do(t, http.MethodPut, "/api/nodes/b", "application/json", `{"x": 1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("move without y: status = %d, want 400", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/edges/a-b", "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove edge: status = %d, want 204", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/nodes/c", "", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove node: status = %d, want 204", resp.StatusCode)
	}
	if n := len(env.session.Stats()); n != 0 {
		t.Errorf("removing c should drop b-c, %d edges left", n)
	}

	resp = env.do(t, http.MethodDelete, "/api/nodes/c", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("remove missing node: status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_Viewport(t *testing.T) {
	env := startTestServer(t)

	resp := env.do(t, http.MethodPut, "/api/viewport", "application/json", `{"pan_x": 5, "pan_y": 6, "zoom": 1.5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	tr := env.session.Layout().Transform()
	if tr.Zoom != 1.5 || tr.Pan.X != 5 || tr.Pan.Y != 6 {
		t.Errorf("transform = %+v", tr)
	}

	resp = env.do(t, http.MethodPut, "/api/viewport", "application/json", `{"zoom": -1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative zoom: status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Frames(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)
	env.session.Start()
	for i := 0; i < 3; i++ {
		if err := env.session.Renderer().ProcessStep(); err != nil {
			t.Fatal(err)
		}
	}

	var records []recorder.FrameRecord
	decodeJSON(t, env.do(t, http.MethodGet, "/api/frames?limit=2", "", ""), &records)
	if len(records) != 2 {
		t.Fatalf("got %d frames, want 2", len(records))
	}
	if records[1].Frame.Seq != 3 {
		t.Errorf("last frame seq = %d, want 3", records[1].Frame.Seq)
	}
	if len(records[1].Edges) != 2 {
		t.Errorf("frame should carry edge stats, got %d", len(records[1].Edges))
	}

	resp := env.do(t, http.MethodGet, "/api/frames?limit=-1", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_ExportFrames(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)
	env.session.Start()
	if err := env.session.Renderer().ProcessStep(); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, http.MethodGet, "/api/frames/export?codec=msgpack&compression=zstd", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zstd" {
		t.Errorf("Content-Type = %q, want application/zstd", ct)
	}
	records, err := recorder.Load(resp.Body, recorder.Format{Codec: recorder.CodecMsgpack, Compression: recorder.CompressionZstd})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("exported %d frames, want 1", len(records))
	}

	resp = env.do(t, http.MethodGet, "/api/frames/export?codec=xml", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown codec: status = %d, want 400", resp.StatusCode)
	}
}

func TestServer_Metrics(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)
	env.session.Start()
	if err := env.session.Renderer().ProcessStep(); err != nil {
		t.Fatal(err)
	}

	resp := env.do(t, http.MethodGet, "/metrics", "", "")
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("meshflow_frames_total 1")) {
		t.Errorf("metrics should count one frame, got:\n%s", body)
	}
}

func TestServer_Dashboard(t *testing.T) {
	env := startTestServer(t)

	resp := env.do(t, http.MethodGet, "/dashboard", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
}

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.baseURL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_HelloBackdropAndFrames(t *testing.T) {
	env := startTestServer(t)
	env.postGraph(t)
	conn := dialWS(t, env, "")

	hello := readJSON(t, conn)
	if hello.Type != MessageHello || hello.ClientID == "" {
		t.Fatalf("first message = %+v, want hello with client id", hello)
	}
	backdrop := readJSON(t, conn)
	if backdrop.Type != MessageBackdrop {
		t.Fatalf("second message type = %q, want backdrop", backdrop.Type)
	}
	if n := canvas.Count(backdrop.Ops, canvas.OpArc); n != 3 {
		t.Errorf("backdrop draws %d nodes, want 3", n)
	}

	waitForClients(t, env.hub, 1)
	env.session.Start()
	if err := env.session.Renderer().ProcessStep(); err != nil {
		t.Fatal(err)
	}

	frame := readJSON(t, conn)
	if frame.Type != MessageFrame || frame.Frame == nil {
		t.Fatalf("message = %+v, want frame", frame)
	}
	if frame.Frame.Seq != 1 {
		t.Errorf("frame seq = %d, want 1", frame.Frame.Seq)
	}
	if len(frame.Ops) == 0 || frame.Ops[0].Name != canvas.OpSetTransform {
		t.Errorf("frame ops should start with setTransform, got %v", frame.Ops)
	}
	if len(frame.Edges) != 2 {
		t.Errorf("frame carries %d edge stats, want 2", len(frame.Edges))
	}
}

func TestWebSocket_GraphChangeRebroadcastsBackdrop(t *testing.T) {
	env := startTestServer(t)
	conn := dialWS(t, env, "")
	if msg := readJSON(t, conn); msg.Type != MessageHello {
		t.Fatalf("first message = %q, want hello", msg.Type)
	}
	// The empty graph still has a backdrop.
	if msg := readJSON(t, conn); msg.Type != MessageBackdrop {
		t.Fatalf("second message = %q, want backdrop", msg.Type)
	}
	waitForClients(t, env.hub, 1)

	env.postGraph(t)
	msg := readJSON(t, conn)
	if msg.Type != MessageBackdrop || canvas.Count(msg.Ops, canvas.OpArc) != 3 {
		t.Errorf("message = %q with %d arcs, want backdrop with 3", msg.Type, canvas.Count(msg.Ops, canvas.OpArc))
	}
}

func TestWebSocket_Msgpack(t *testing.T) {
	env := startTestServer(t)
	conn := dialWS(t, env, "?encoding=msgpack")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("message kind = %d, want binary", kind)
	}
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageHello {
		t.Errorf("type = %q, want hello", msg.Type)
	}
}

func TestWebSocket_UnknownEncoding(t *testing.T) {
	env := startTestServer(t)
	url := "ws" + strings.TrimPrefix(env.baseURL, "http") + "/ws?encoding=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v, want 400", resp)
	}
}

func TestWebSocket_StoppedNotification(t *testing.T) {
	env := startTestServer(t)
	conn := dialWS(t, env, "")
	readJSON(t, conn)
	readJSON(t, conn)
	waitForClients(t, env.hub, 1)

	env.hub.NotifyStopped(io.ErrUnexpectedEOF)
	msg := readJSON(t, conn)
	if msg.Type != MessageStopped || msg.Error != io.ErrUnexpectedEOF.Error() {
		t.Errorf("message = %+v, want stopped with error", msg)
	}
}

func TestWebSocket_DisconnectRemovesClient(t *testing.T) {
	env := startTestServer(t)
	conn := dialWS(t, env, "")
	waitForClients(t, env.hub, 1)

	conn.Close()
	waitForClients(t, env.hub, 0)
}
