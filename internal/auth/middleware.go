package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Middleware validates the access token and stores the caller identity in
// request locals. Tokens are read from the Authorization header, the
// access_token cookie, or the token query parameter; the last one exists
// for WebSocket upgrades, where browsers cannot set headers.
func Middleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization token",
			})
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if err == ErrExpiredToken {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals("userID", claims.UserID)
		c.Locals("userName", claims.UserName)
		c.Locals("claims", claims)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// UserID reads the authenticated user id from request locals
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("userID").(int64)
	return id
}

// UserName reads the authenticated display name from request locals
func UserName(c *fiber.Ctx) string {
	name, _ := c.Locals("userName").(string)
	return name
}
