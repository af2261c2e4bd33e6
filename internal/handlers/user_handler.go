package handlers

import (
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) PendingVerification(c *fiber.Ctx) error {
	users, err := h.userService.PendingVerification(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

func (h *UserHandler) Documents(c *fiber.Ctx) error {
	resp, err := h.userService.Documents(c.UserContext(), c.Params("phone"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) SetVerified(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	var req dto.SetVerifiedRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if req.IsVerified == nil {
		return badRequest(c, "isVerified is required")
	}

	user, err := h.userService.SetVerified(c.UserContext(), id, *req.IsVerified)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) IntroducedCount(c *fiber.Ctx) error {
	resp, err := h.userService.IntroducedCount(c.UserContext(), c.Params("personCode"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
