package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/rigidsim/internal/world"
)

const writeWait = 2 * time.Second

// EventSummary is the wire form of one world event.
type EventSummary struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Frame is one broadcast snapshot taken after a step.
type Frame struct {
	Step      int            `json:"step"`
	Time      float64        `json:"time"`
	Integrity float64        `json:"integrity"`
	Poses     []world.Pose   `json:"poses"`
	Events    []EventSummary `json:"events,omitempty"`
}

// Hub fans frames out to every connected websocket client. Clients are
// receive-only; anything they send is read and discarded so close frames
// are noticed.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[*SafeWriter]struct{}
	hello   func() any
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      logger,
		clients:  make(map[*SafeWriter]struct{}),
	}
}

// OnConnect sets a message sent to each client before it joins the
// broadcast set, such as the current scene.
func (h *Hub) OnConnect(fn func() any) {
	h.mu.Lock()
	h.hello = fn
	h.mu.Unlock()
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	client := NewSafeWriter(conn)
	defer h.drop(client)

	h.mu.RLock()
	hello := h.hello
	h.mu.RUnlock()
	if hello != nil {
		if err := client.WriteJSON(hello()); err != nil {
			h.log.Warn("websocket greeting failed", "remote", conn.RemoteAddr(), "err", err)
			return
		}
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Info("client connected", "remote", conn.RemoteAddr(), "clients", h.Clients())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}
	}
}

func (h *Hub) drop(c *SafeWriter) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
	if ok {
		h.log.Info("client disconnected", "clients", h.Clients())
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes f to every client and returns how many received it.
// Clients whose write fails are dropped.
func (h *Hub) Broadcast(f Frame) int {
	h.mu.RLock()
	targets := make([]*SafeWriter, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.WriteJSON(f); err != nil {
			h.log.Debug("dropping client", "err", err)
			h.drop(c)
			continue
		}
		sent++
	}
	return sent
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*SafeWriter]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		c.Close()
	}
}
