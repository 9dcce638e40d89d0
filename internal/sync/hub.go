package sync

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 2 * time.Second

	// queued messages per client before it counts as stalled
	sendBuffer = 64
)

// Hub fans JSON events out to every connected WebSocket client. Each client
// has its own writer goroutine, so a slow connection never holds the hub lock.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
	logger  *slog.Logger
}

type client struct {
	ws   *websocket.Conn
	send chan []byte
}

type Stats struct {
	WSClients int `json:"ws_clients"`
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		logger:  logger,
	}
}

// Add registers ws and starts its writer. From here on only the writer
// writes to ws.
func (h *Hub) Add(ws *websocket.Conn) {
	c := &client{ws: ws, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[ws] = c
	h.mu.Unlock()
	go c.writeLoop()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	h.dropLocked(ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// dropLocked unregisters ws and stops its writer. Safe to call twice.
func (h *Hub) dropLocked(ws *websocket.Conn) {
	if c, ok := h.clients[ws]; ok {
		delete(h.clients, ws)
		close(c.send)
	}
}

// BroadcastJSON queues v for every client. Calls are serialized, so every
// client sees events in call order. A client whose queue is full is dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal broadcast", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws, c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.dropLocked(ws)
			h.logger.Warn("ws client too slow, dropped", "clients", len(h.clients))
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{WSClients: len(h.clients)}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.clients {
		h.dropLocked(ws)
	}
}

// writeLoop drains the queue until it is closed or a write fails, then
// closes the connection so the read loop in WSHandler ends too.
func (c *client) writeLoop() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
