package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func StatusHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Hello from API!"})
}

// HealthHandler answers 503 when the store cannot be pinged within a second.
func HealthHandler(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "error",
				"database": "disconnected",
				"message":  "Service unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "ok",
			"database": "connected",
			"message":  "Database is connected",
		})
	}
}
