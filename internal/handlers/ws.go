package handlers

import (
	"context"
	"log/slog"
	"time"

	"photo-rating/internal/events"
	"photo-rating/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler keeps a connection registered with the hub so rating
// events reach the user live. Incoming messages are ignored.
func WebSocketHandler(hub *events.Hub, users *services.UserService, logger *slog.Logger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by middleware)
		userID, _ := c.Locals(userIDKey).(int64)

		// Generate a unique ID for this connection
		connID := uuid.NewString()

		if hub.Register(connID, userID, c) {
			logger.Debug("user online", "user_id", userID)
		}
		logger.Debug("websocket connected", "user_id", userID, "connections", hub.CountUserConnections(userID))
		defer func() {
			if hub.Unregister(connID) {
				logger.Debug("user offline", "user_id", userID)
			}
			c.Close()
		}()

		welcome := events.Event{Type: events.TypeConnected, UserID: userID, Timestamp: time.Now().Unix()}
		if u, err := users.GetProfile(context.Background(), userID); err == nil {
			welcome.Points = u.Points
		}
		if err := hub.SendToConn(connID, welcome); err != nil {
			logger.Warn("websocket welcome", "user_id", userID, "error", err)
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read", "user_id", userID, "error", err)
				}
				break
			}
		}
	})
}
