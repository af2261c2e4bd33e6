package handlers

import (
	"strings"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type LocationHandler struct {
	locationService *services.LocationService
}

func NewLocationHandler(locationService *services.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

func (h *LocationHandler) All(c *fiber.Ctx) error {
	all, err := h.locationService.All(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(all)
}

// Values serves /locations/:level where level is plural ("states") or singular.
func (h *LocationHandler) Values(c *fiber.Ctx) error {
	name := c.Params("level")
	level, ok := models.ParseLevel(strings.TrimSuffix(name, "s"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Unknown location level: " + name})
	}
	values, err := h.locationService.Values(c.UserContext(), level, locationFromQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(values)
}

func (h *LocationHandler) ReverseLookup(c *fiber.Ctx) error {
	path, err := h.locationService.ReverseLookup(c.UserContext(), c.Params("value"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(path)
}

func (h *LocationHandler) List(c *fiber.Ctx) error {
	resp, err := h.locationService.List(c.UserContext(), c.Query("search"),
		queryInt(c, "page", 1), queryInt(c, "limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *LocationHandler) Create(c *fiber.Ctx) error {
	var req models.LocationPath
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	loc, err := h.locationService.Create(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(loc)
}

func (h *LocationHandler) Update(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid location id")
	}
	var req models.LocationPath
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	loc, err := h.locationService.Update(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loc)
}

func (h *LocationHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid location id")
	}
	if err := h.locationService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: "Location deleted"})
}

func (h *LocationHandler) BulkImport(c *fiber.Ctx) error {
	var req dto.BulkImportRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	resp, err := h.locationService.BulkImport(c.UserContext(), req.Locations)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
