package handlers

import (
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	app, err := h.applicationService.Submit(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SubmitApplicationResponse{
		Message:       "Application submitted successfully",
		ApplicationID: app.ID.String(),
		PersonCode:    app.PersonCode,
		Status:        app.Status,
	})
}

func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	resp, err := h.applicationService.List(c.UserContext(), c.Query("status"),
		queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid application id")
	}
	app, err := h.applicationService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

func (h *ApplicationHandler) Approve(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid application id")
	}
	var req dto.DecideApplicationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	resp, err := h.applicationService.Approve(c.UserContext(), id, req.AdminNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ApplicationHandler) Reject(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid application id")
	}
	var req dto.DecideApplicationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	app, err := h.applicationService.Reject(c.UserContext(), id, req.AdminNotes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid application id")
	}
	if err := h.applicationService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Success: true, Message: "Application deleted"})
}

func (h *ApplicationHandler) UpdatePayment(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid application id")
	}
	var req dto.UpdatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	app, err := h.applicationService.UpdatePayment(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

func (h *ApplicationHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.applicationService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *ApplicationHandler) ByPosition(c *fiber.Ctx) error {
	resp, err := h.applicationService.ByPosition(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
