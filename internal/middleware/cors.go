package middleware

import (
	"strings"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// adminPanelHeaders are sent by the admin panel on top of the usual JSON headers.
var adminPanelHeaders = []string{"Authorization", "X-Admin-Token"}

// CORS lets the partner app and the admin panel call the API from the configured
// origins. Rate limit and request id headers are readable by the browser.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     strings.Join(append([]string{"Origin", "Content-Type", "Accept"}, adminPanelHeaders...), ", "),
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders:    "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After",
		AllowCredentials: false,
		MaxAge:           600,
	})
}
