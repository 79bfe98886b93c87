package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/sellerconsole/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Frame types pushed to websocket clients.
const (
	FrameState = "state"
	FrameEvent = "event"
)

// Frame is one message pushed to clients.
type Frame struct {
	Type    string `json:"type"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload"`
}

// ClientMessage is a message sent by a client, e.g. a toast action.
type ClientMessage struct {
	Action string `json:"action"`
}

// Hub fans frames out to every connected console and implements
// toast.Emitter.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	clients   map[string]*client
	closed    bool
	onConnect func() Frame
	onAction  func(clientID, action string)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// HubOptions configures a Hub.
type HubOptions struct {
	// AllowedOrigins are accepted in addition to same-origin requests.
	AllowedOrigins []string

	// Metrics is optional.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "hub")
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		logger:  logger,
		metrics: opts.Metrics,
		clients: make(map[string]*client),
	}
}

// OnConnect sets the frame sent to each client right after it connects.
func (h *Hub) OnConnect(fn func() Frame) {
	h.mu.Lock()
	h.onConnect = fn
	h.mu.Unlock()
}

// OnAction sets the handler for client actions.
func (h *Hub) OnAction(fn func(clientID, action string)) {
	h.mu.Lock()
	h.onAction = fn
	h.mu.Unlock()
}

// Emit implements toast.Emitter.
func (h *Hub) Emit(event string, payload any) {
	h.Broadcast(Frame{Type: FrameEvent, Event: event, Payload: payload})
}

// Broadcast queues f for every client. Clients whose queue is full are
// disconnected rather than blocking the caller.
func (h *Hub) Broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("frame encode failed", "type", f.Type, "error", err)
		return
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "client", c.id)
		h.recordError("slow_client")
		h.unregister(c)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		h.recordError("upgrade")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "unavailable"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// register adds c and queues the hello frame. It reports false if the hub is
// closed or c's queue filled up before it could take the hello.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	hello := h.onConnect
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.logger.Info("client connected", "client", c.id)

	if hello != nil {
		if data, err := json.Marshal(hello()); err == nil {
			select {
			case c.send <- data:
			default:
				h.logger.Warn("dropping slow client", "client", c.id)
				h.recordError("slow_client")
				h.unregister(c)
				return false
			}
		}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
	h.logger.Info("client disconnected", "client", c.id)
}

// readLoop handles client messages and pongs until the connection fails.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "client", c.id, "error", err)
				h.recordError("read")
			}
			return
		}

		var m ClientMessage
		if err := json.Unmarshal(msg, &m); err != nil || m.Action == "" {
			h.logger.Debug("ignoring client message", "client", c.id)
			continue
		}
		h.mu.RLock()
		onAction := h.onAction
		h.mu.RUnlock()
		if onAction != nil {
			onAction(c.id, m.Action)
		}
	}
}

// writeLoop is the only writer of c.conn.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.recordError("write")
				h.unregister(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.recordError("ping")
				h.unregister(c)
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *Hub) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.WebSocketError(kind)
	}
}

// originChecker accepts same-origin requests, requests without an Origin
// header and the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		u, err := url.Parse(origin)
		if err != nil || r.Host == "" {
			return false
		}
		return u.Host == r.Host
	}
}
