package handlers

import (
	"photo-rating/internal/common"
	"photo-rating/internal/models"
	"photo-rating/internal/services"

	"github.com/gofiber/fiber/v2"
)

func invalidBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
}

func RegisterHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		res, err := users.Register(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func LoginHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		res, err := users.Login(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// ForgotPasswordHandler confirms the account exists. No mail is delivered.
func ForgotPasswordHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.ForgotPasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody()
		}
		if err := users.ForgotPassword(c.UserContext(), req.Email); err != nil {
			if common.Kind(err) == "not_found" {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}
		return c.JSON(fiber.Map{"message": "Password reset link has been sent to your email"})
	}
}

// MeHandler returns the authenticated user with the current balance.
func MeHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := users.GetProfile(c.UserContext(), currentUserID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user": u.Info()})
	}
}
