package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// Message types sent to WebSocket clients.
const (
	MessageHello    = "hello"
	MessageBackdrop = "backdrop"
	MessageFrame    = "frame"
	MessageStopped  = "stopped"
)

// Encoding is the wire format of a client, picked with ?encoding= on /ws.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev tool.
	},
}

// Message is one payload pushed to clients. Frame messages carry the
// display list of the traffic layer; backdrop messages carry the graph
// underneath, sent on connect and whenever the graph changes.
type Message struct {
	Type     string              `json:"type" msgpack:"type"`
	ClientID string              `json:"client_id,omitempty" msgpack:"client_id,omitempty"`
	Frame    *traffic.Frame      `json:"frame,omitempty" msgpack:"frame,omitempty"`
	Ops      []canvas.Op         `json:"ops,omitempty" msgpack:"ops,omitempty"`
	Edges    []traffic.EdgeStats `json:"edges,omitempty" msgpack:"edges,omitempty"`
	Error    string              `json:"error,omitempty" msgpack:"error,omitempty"`
}

// OpsSource provides the display list of the last frame.
type OpsSource interface {
	Ops() []canvas.Op
}

// Drawer paints the graph backdrop.
type Drawer interface {
	Draw(ctx canvas.Context)
}

// StatsSource provides per-edge counters.
type StatsSource interface {
	Stats() []traffic.EdgeStats
}

// Scene is the rest of the picture besides the traffic layer: the graph
// and its edge counters. *session.Session is one.
type Scene interface {
	Drawer
	StatsSource
}

type client struct {
	id       string
	conn     *websocket.Conn
	encoding Encoding
	send     chan []byte
}

// Hub manages WebSocket clients and broadcasts frames. It implements
// traffic.FrameObserver.
type Hub struct {
	ops OpsSource

	mu      sync.RWMutex
	scene   Scene
	clients map[*client]bool
	closed  bool
}

// NewHub creates a new WebSocket hub streaming the display lists of ops.
func NewHub(ops OpsSource) *Hub {
	return &Hub{
		ops:     ops,
		clients: make(map[*client]bool),
	}
}

// Bind attaches the scene once it exists: its backdrop is sent on connect
// and on BroadcastBackdrop, its edge counters ride along with frames.
func (h *Hub) Bind(scene Scene) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene = scene
}

func (h *Hub) currentScene() Scene {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scene
}

// HandleWebSocket upgrades the HTTP connection and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	enc := Encoding(r.URL.Query().Get("encoding"))
	switch enc {
	case "":
		enc = EncodingJSON
	case EncodingJSON, EncodingMsgpack:
	default:
		http.Error(w, fmt.Sprintf("unknown encoding %q", enc), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		encoding: enc,
		send:     make(chan []byte, sendBuffer),
	}

	// Queue the greeting before registering so it precedes any broadcast.
	h.enqueue(c, Message{Type: MessageHello, ClientID: c.id})
	if scene := h.currentScene(); scene != nil {
		h.enqueue(c, backdropMessage(scene))
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	h.mu.Unlock()

	log.WithFields(log.Fields{"client": c.id, "encoding": enc}).Info("websocket client connected")

	go h.writeLoop(c)

	// Read loop: keep connection alive, handle disconnects.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		kind := websocket.TextMessage
		if c.encoding == EncodingMsgpack {
			kind = websocket.BinaryMessage
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			log.WithError(err).WithField("client", c.id).Debug("websocket write failed")
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		log.WithField("client", c.id).Info("websocket client disconnected")
	}
}

// ObserveFrame broadcasts a frame and its display list.
func (h *Hub) ObserveFrame(f traffic.Frame) {
	msg := Message{Type: MessageFrame, Frame: &f}
	if h.ops != nil {
		msg.Ops = h.ops.Ops()
	}
	if scene := h.currentScene(); scene != nil {
		msg.Edges = scene.Stats()
	}
	h.Broadcast(msg)
}

// NotifyStopped tells clients the engine stopped on err.
func (h *Hub) NotifyStopped(err error) {
	msg := Message{Type: MessageStopped}
	if err != nil {
		msg.Error = err.Error()
	}
	h.Broadcast(msg)
}

// BroadcastBackdrop repaints the graph for every client.
func (h *Hub) BroadcastBackdrop() {
	if scene := h.currentScene(); scene != nil {
		h.Broadcast(backdropMessage(scene))
	}
}

func backdropMessage(d Drawer) Message {
	rec := canvas.NewRecording()
	d.Draw(rec.Context())
	return Message{Type: MessageBackdrop, Ops: rec.Ops()}
}

// Broadcast sends msg to all connected clients, encoding it once per wire
// format. Clients that fall behind miss messages rather than stall the
// engine.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	encoded := make(map[Encoding][]byte, 2)
	for c := range h.clients {
		data, ok := encoded[c.encoding]
		if !ok {
			var err error
			if data, err = encode(c.encoding, msg); err != nil {
				log.WithError(err).WithField("type", msg.Type).Warn("websocket marshal failed")
				return
			}
			encoded[c.encoding] = data
		}
		select {
		case c.send <- data:
		default:
			log.WithField("client", c.id).Debug("websocket client slow, message dropped")
		}
	}
}

// enqueue must only be called before c is registered.
func (h *Hub) enqueue(c *client, msg Message) {
	data, err := encode(c.encoding, msg)
	if err != nil {
		log.WithError(err).WithField("type", msg.Type).Warn("websocket marshal failed")
		return
	}
	c.send <- data
}

func encode(enc Encoding, msg Message) ([]byte, error) {
	if enc == EncodingMsgpack {
		return msgpack.Marshal(msg)
	}
	return json.Marshal(msg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
