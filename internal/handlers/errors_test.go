package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/channelpartner/position-backend/internal/dto"
	"github.com/channelpartner/position-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrDuplicateApplication, fiber.StatusConflict},
		{services.ErrSelfTransfer, fiber.StatusConflict},
		{services.ErrApplicationNotFound, fiber.StatusNotFound},
		{fmt.Errorf("%w: you have 10 credits", services.ErrInsufficientFunds), fiber.StatusBadRequest},
		{services.ErrOTPMismatch, fiber.StatusUnauthorized},
		{services.ErrOTPThrottled, fiber.StatusTooManyRequests},
		{fmt.Errorf("%w: ad backend returned status 500", services.ErrUpstream), fiber.StatusBadGateway},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error { return respondError(c, errors.New("pq: relation missing")) })
	app.Get("/conflict", func(c *fiber.Ctx) error { return respondError(c, services.ErrPhoneTaken) })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Error)
	require.Equal(t, "Internal server error", body.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/conflict", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, services.ErrPhoneTaken.Error(), body.Message)
}
