package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordCreditsUsesAbsoluteAmount(t *testing.T) {
	before := testutil.ToFloat64(credits.WithLabelValues("deduction"))
	RecordCredits("deduction", -200)
	require.Equal(t, before+200, testutil.ToFloat64(credits.WithLabelValues("deduction")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping/:id", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", adaptor.HTTPHandler(Handler()))

	resp, err := app.Test(httptest.NewRequest("GET", "/ping/7", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	require.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping/:id", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.True(t, strings.Contains(string(body), "channel_partner_http_requests_total"))
}
