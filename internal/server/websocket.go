package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/validation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outgoing messages buffered per client.
	sendBuffer = 16
)

// Client is one connected page.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans update messages out to connected clients.
type Hub struct {
	clients    map[string]*Client
	mutex      sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	logger     logging.Logger
}

// NewHub creates an idle hub. Run must be called to deliver messages.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.CloseAll()
			return

		case client := <-h.register:
			// A reconnecting page replaces its previous connection.
			h.remove(h.lookup(client.id))
			h.mutex.Lock()
			h.clients[client.id] = client
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "client", client.id, "total", count)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			var failed []*Client
			h.mutex.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					failed = append(failed, client)
				}
			}
			h.mutex.RUnlock()

			// Slow clients are dropped; the page reconnects.
			for _, client := range failed {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) lookup(id string) *Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[id]
}

// remove drops c if it is still the registered client for its id.
func (h *Hub) remove(c *Client) {
	if c == nil {
		return
	}
	h.mutex.Lock()
	ok := h.clients[c.id] == c
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	count := len(h.clients)
	h.mutex.Unlock()

	if ok {
		h.logger.Debug(context.Background(), "Client disconnected", "client", c.id, "total", count)
	}
}

// Register adds c once the hub is running. It reports false when the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister disconnects c.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), nil, "Broadcast queue full, dropping update")
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Each writePump closes its connection
// once its send channel is closed.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	// Origin was checked above.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade error")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	id := r.URL.Query().Get("client")
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	client := &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  s.hub,
	}

	// The new page gets the current state before any broadcast.
	if data, err := json.Marshal(s.updateMessage(r.Context())); err == nil {
		client.send <- data
	}

	ctx := context.WithoutCancel(r.Context())
	if !s.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	go client.writePump(ctx)
	client.readPump(ctx)
}

// checkOrigin accepts same-origin requests and configured origins.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	return validation.OriginAllowed(r.Header.Get("Origin"), r.Host, s.config.Server.AllowedOrigins)
}

// readPump discards client messages and detects disconnects.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.hub.logger.Debug(ctx, "WebSocket closed", "client", c.id, "error", err.Error())
			}
			return
		}
	}
}

// writePump writes queued messages until the send channel is closed.
func (c *Client) writePump(ctx context.Context) {
	defer c.conn.Close(websocket.StatusGoingAway, "")
	for message := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := c.conn.Write(writeCtx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}
