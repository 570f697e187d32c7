// Package ws implements the WebSocket hub that pushes snapshot refresh
// events to connected dashboard clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyview/polyview/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 512

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 16
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API is read-only; CORS policy is enforced at the HTTP layer.
		return true
	},
}

// RefreshEvent is the JSON message broadcast after each snapshot refresh.
type RefreshEvent struct {
	Type        string    `json:"type"` // always "snapshot_refreshed"
	FetchedAt   time.Time `json:"fetchedAt"`
	MarketCount int       `json:"marketCount"`
	Stale       bool      `json:"stale"`
}

// client represents a single WebSocket connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected WebSocket clients and fans snapshot refresh events
// out to all of them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{} // closed when Run exits
	logger     *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run processes register/unregister/broadcast events until the context is
// cancelled, then closes all client connections.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("ws client connected", slog.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// BroadcastRefresh notifies all clients that a new snapshot is available.
// Safe to call from any goroutine; drops the event if the hub is saturated.
func (h *Hub) BroadcastRefresh(snap domain.Snapshot) {
	data, err := json.Marshal(RefreshEvent{
		Type:        "snapshot_refreshed",
		FetchedAt:   snap.FetchedAt,
		MarketCount: len(snap.Markets),
		Stale:       snap.Stale,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws broadcast buffer full, dropping refresh event")
	}
}

// HandleWS upgrades the HTTP connection and attaches the client to the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// drop detaches a client from the hub without blocking once the hub has shut
// down; at that point Run has already closed every registered client.
func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump drains incoming frames to keep pong handling alive. Clients have
// nothing to say to a read-only feed; any payload is discarded.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards hub messages to the connection and keeps it alive with
// periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
