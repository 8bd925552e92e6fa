package handlers

import (
	"strings"

	"photo-rating/internal/services"

	"github.com/gofiber/fiber/v2"
)

const userIDKey = "user_id"

// AuthMiddleware verifies the bearer token and stores the user id in locals.
func AuthMiddleware(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get token from query param `access_token` or Authorization header
		token := c.Query("access_token")
		if token == "" {
			if bearer, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
				token = bearer
			}
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authentication failed")
		}

		userID, err := users.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(userIDKey).(int64)
	return id
}
