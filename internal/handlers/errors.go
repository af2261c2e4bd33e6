package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/middleware"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrOTPThrottled):
		return fiber.StatusTooManyRequests
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInsufficientFunds):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrUpstream):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		msg = "Internal server error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func invalidBody(c *fiber.Ctx) error {
	return badRequest(c, "Invalid request body")
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func currentUser(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
