package notify

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// hubWriteWait bounds a single write when the caller's ctx has no deadline.
const hubWriteWait = 5 * time.Second

// FeedMessage is what admin feed clients receive.
type FeedMessage struct {
	Type  string `json:"type"`
	Event Event  `json:"event"`
}

// Hub keeps one live admin feed connection per user and broadcasts
// confirmed bookings to all of them.
type Hub struct {
	connections map[int64]*websocket.Conn
	mutex       sync.RWMutex
	writeMu     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]*websocket.Conn),
	}
}

func (h *Hub) Name() string { return "admin_feed" }

// Register replaces any earlier connection of the same user.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if oldConn, exists := h.connections[userID]; exists && oldConn != nil && oldConn != conn {
		_ = oldConn.Close()
	}

	h.connections[userID] = conn
}

// Unregister closes conn if it is still the user's current connection.
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if current, exists := h.connections[userID]; exists && current == conn {
		_ = current.Close()
		delete(h.connections, userID)
	}
}

func (h *Hub) OnlineCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}

// Send broadcasts ev. Each write is bounded by ctx's deadline, or by
// hubWriteWait without one. Connections that fail or time out are dropped;
// an empty hub is not an error.
func (h *Hub) Send(ctx context.Context, ev Event) error {
	h.mutex.RLock()
	targets := make(map[int64]*websocket.Conn, len(h.connections))
	for id, c := range h.connections {
		targets[id] = c
	}
	h.mutex.RUnlock()

	msg := FeedMessage{Type: ev.Type, Event: ev}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for id, conn := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(hubWriteWait)
		}
		if err := conn.SetWriteDeadline(deadline); err != nil {
			h.Unregister(id, conn)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			h.Unregister(id, conn)
		}
	}
	return nil
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, conn := range h.connections {
		if conn != nil {
			_ = conn.Close()
		}
		delete(h.connections, userID)
	}
}
