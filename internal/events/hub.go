package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteJSON(v any) error
}

type client struct {
	userID int64
	conn   Conn
	// websocket writes are not safe for concurrent use
	mu sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks websocket connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register stores a new connection.
// Returns true if this is the first connection for this user
func (h *Hub) Register(connID string, userID int64, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasOnline := h.countLocked(userID) > 0
	h.clients[connID] = &client{userID: userID, conn: conn}
	return !wasOnline
}

// Unregister removes a connection.
// Returns true if this was the last connection for the user
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	delete(h.clients, connID)
	return h.countLocked(c.userID) == 0
}

func (h *Hub) countLocked(userID int64) int {
	n := 0
	for _, c := range h.clients {
		if c.userID == userID {
			n++
		}
	}
	return n
}

// CountUserConnections returns the number of active connections for a user
func (h *Hub) CountUserConnections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked(userID)
}

func (h *Hub) IsUserOnline(userID int64) bool {
	return h.CountUserConnections(userID) > 0
}

// SendToUser writes msg to every connection of userID. Write failures are
// logged; the read loop owning the connection handles the disconnect.
func (h *Hub) SendToUser(userID int64, msg any) int {
	h.mu.RLock()
	targets := make([]*client, 0, 1)
	for _, c := range h.clients {
		if c.userID == userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.logger.Warn("websocket write failed", "user_id", userID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// SendToConn writes msg to a single registered connection.
func (h *Hub) SendToConn(connID string, msg any) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown connection %s", connID)
	}
	return c.send(msg)
}

// Publish delivers ev to the user it is addressed to, if online.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if !h.IsUserOnline(ev.UserID) {
		h.logger.DebugContext(ctx, "user offline, event not delivered live", "event", ev.Type, "user_id", ev.UserID)
		return nil
	}
	h.SendToUser(ev.UserID, ev)
	return nil
}
