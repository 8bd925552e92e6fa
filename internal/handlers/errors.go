package handlers

import (
	"errors"
	"log/slog"

	"photo-rating/internal/common"

	"github.com/gofiber/fiber/v2"
)

// publicMessages are the only texts a client sees for taxonomy errors.
// Wrapped detail stays in the logs.
var publicMessages = []struct {
	err error
	msg string
}{
	{common.ErrAlreadyRated, "You have already rated this photo"},
	{common.ErrSelfRating, "Cannot rate your own photo"},
	{common.ErrInsufficientBalance, "Not enough points to activate photo"},
	{common.ErrUserExists, "User already exists"},
	{common.ErrNotFound, "Not found"},
	{common.ErrAuthFailure, "Authentication failed"},
	{common.ErrInvalidArgument, "Invalid request"},
	{common.ErrUnavailable, "Service unavailable"},
}

// statusFor maps the shared error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch common.Kind(err) {
	case "invalid_argument", "conflict", "invalid_operation", "insufficient_balance":
		return fiber.StatusBadRequest
	case "auth_failure":
		return fiber.StatusUnauthorized
	case "not_found":
		return fiber.StatusNotFound
	case "unavailable":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return verr.Msg
	}
	for _, m := range publicMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong"
}

// ErrorHandler renders every error as {"message": ...}. Server-side failures
// are logged with their full chain.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		code := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": publicMessage(err)})
	}
}
