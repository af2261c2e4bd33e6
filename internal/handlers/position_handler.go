package handlers

import (
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PositionHandler struct {
	positionService *services.PositionService
}

func NewPositionHandler(positionService *services.PositionService) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

// locationFromQuery reads ?country=&zone=&...&village= into a path.
func locationFromQuery(c *fiber.Ctx) models.LocationPath {
	var path models.LocationPath
	for l := models.LevelCountry; l <= models.LevelVillage; l++ {
		path = path.With(l, c.Query(l.String()))
	}
	return path
}

// Resolve lists the slots under the location given in the query string.
func (h *PositionHandler) Resolve(c *fiber.Ctx) error {
	positions, err := h.positionService.Resolve(c.UserContext(), locationFromQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "positions": positions, "total": len(positions)})
}

func (h *PositionHandler) Status(c *fiber.Ctx) error {
	resp, err := h.positionService.Status(c.UserContext(), c.Params("positionId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *PositionHandler) List(c *fiber.Ctx) error {
	resp, err := h.positionService.List(c.UserContext(), locationFromQuery(c), c.Query("status"),
		queryInt(c, "skip", 0), queryInt(c, "limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *PositionHandler) Get(c *fiber.Ctx) error {
	p, err := h.positionService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

func (h *PositionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePositionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	p, err := h.positionService.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PositionHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdatePositionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	p, err := h.positionService.Update(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

func (h *PositionHandler) Delete(c *fiber.Ctx) error {
	if err := h.positionService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: "Position deleted"})
}
