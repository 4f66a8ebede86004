// Package middleware provides authentication, logging, and rate limiting
// middleware for the HTTP boundary.
package middleware

import (
	"strconv"
	"strings"

	"ripple/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token issuer/audience values checked on every protected request.
const (
	TokenIssuer   = "ripple-api"
	TokenAudience = "ripple-client"
)

// Locals keys under which the resolved identity is stored.
const (
	LocalUserID    = "userID"
	LocalUserName  = "userName"
	LocalUserEmail = "userEmail"
)

// RequireAuth enforces a bearer JWT and stores the resolved identity
// (id, display name, email) in the request locals. Mutations read the display
// name from here to snapshot it into posts and comments at write time.
// An invalid or missing credential stops the request before any service call.
func RequireAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Bearer header, or "token" query parameter for websocket upgrades
		// (browsers cannot set headers on websocket handshakes).
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != TokenIssuer {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != TokenAudience {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid subject claim"))
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		name, _ := claims["name"].(string)
		email, _ := claims["email"].(string)

		c.Locals(LocalUserID, uint(userID))
		c.Locals(LocalUserName, name)
		c.Locals(LocalUserEmail, email)

		return c.Next()
	}
}
