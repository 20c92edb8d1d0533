package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ashmont/kestrel/internal/model"
)

// clientBuf bounds the per-client send queue; clients that cannot keep up
// are disconnected.
const clientBuf = 64

// Hub fans anomaly batches out to every connected WebSocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast queues a batch of anomaly records for every connected client.
// Clients whose queue is full are dropped.
func (h *Hub) Broadcast(records []model.AnomalyRecord) {
	if len(records) == 0 {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.enqueue(data) {
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.close()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// client is one WebSocket connection. All writes go through the send
// queue so the hub and the request handler never write concurrently.
type client struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, clientBuf),
		done: make(chan struct{}),
	}
}

func (c *client) close() {
	c.stopOnce.Do(func() { close(c.done) })
}

// writeLoop drains the send queue onto the connection until the client is
// closed.
func (c *client) writeLoop() {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue queues raw bytes, reporting false when the client is closed or
// its queue is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendJSON queues a value for delivery.
func (c *client) sendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}
