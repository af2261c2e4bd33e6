package handlers

import (
	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreditHandler struct {
	creditService *services.CreditService
}

func NewCreditHandler(creditService *services.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	resp, err := h.creditService.Balance(c.UserContext(), userID, queryInt(c, "limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CreditHandler) Transactions(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	views, err := h.creditService.Transactions(c.UserContext(), userID, queryInt(c, "limit", 10))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": views})
}

func (h *CreditHandler) Transfer(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return badRequest(c, "Invalid receiver id")
	}

	resp, err := h.creditService.Transfer(c.UserContext(), userID, receiverID, req.Amount, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CreditHandler) SearchUsers(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.UserSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	users, err := h.creditService.SearchUsers(c.UserContext(), userID, req.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *CreditHandler) Grant(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	var req dto.GrantCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.creditService.Grant(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CreditHandler) ProcessPayment(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	var req dto.PaymentCreditsRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.creditService.ProcessPayment(c.UserContext(), userID, req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *CreditHandler) Reconcile(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user id")
	}
	resp, err := h.creditService.Reconcile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
