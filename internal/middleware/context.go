package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoUser = errors.New("no authenticated user")

// GetUserID reads the subject of the token stored by JWTProtected.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, ErrNoUser
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrNoUser
	}
	return id, nil
}

// GetRawToken returns the bearer token string validated for this request.
func GetRawToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("user").(*jwt.Token); ok && token != nil {
		return token.Raw
	}
	return ""
}
