package middleware

import (
	"crypto/subtle"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// AdminJWT is JWTProtected for the admin group. Requests carrying the
// configured X-Admin-Token skip token validation.
func AdminJWT(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter:     func(c *fiber.Ctx) bool { return hasAdminToken(c, cfg) },
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

func hasAdminToken(c *fiber.Ctx, cfg *config.Config) bool {
	if cfg.AdminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), []byte(cfg.AdminToken)) == 1
}
