// Package middleware provides HTTP middleware for the fiber app.
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"bookpay/internal/utils"
)

// AdminAuth validates a Bearer JWT signed with the given secret and
// requires an "admin" role claim. The token subject is stored in
// c.Locals("adminSubject") for audit fields downstream.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return utils.Unauthorized(c, "missing bearer token")
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Printf("Token validation error: %v", err)
			return utils.Unauthorized(c, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.Unauthorized(c, "invalid claims")
		}
		if role, _ := claims["role"].(string); role != "admin" {
			return utils.Forbidden(c, "insufficient permissions")
		}

		if sub, _ := claims["sub"].(string); sub != "" {
			c.Locals("adminSubject", sub)
		}
		return c.Next()
	}
}
