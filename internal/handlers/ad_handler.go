package handlers

import (
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdHandler struct {
	adService *services.AdService
}

func NewAdHandler(adService *services.AdService) *AdHandler {
	return &AdHandler{adService: adService}
}

func (h *AdHandler) Create(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateAdRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.adService.Create(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
