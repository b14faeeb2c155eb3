package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"storefront/internal/models"
)

// TokenCookie is the cookie carrying the session token.
const TokenCookie = "jwt"

const userKey = "user"

// TokenValidator resolves a session token to the user id it was issued for.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// UserFinder loads the account behind a validated token.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   "AuthError",
	})
}

// tokenFrom reads the session cookie, falling back to a Bearer header.
func tokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(TokenCookie); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthRequired rejects requests without a valid session token and stores the
// authenticated user for subsequent handlers.
func AuthRequired(tokens TokenValidator, users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFrom(c)
		if token == "" {
			return unauthorized(c, "not authorized, no token")
		}

		userID, err := tokens.ValidateToken(token)
		if err != nil {
			return unauthorized(c, "not authorized, token failed")
		}

		user, err := users.GetByID(c.UserContext(), userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Info("token refers to an unknown user")
			return unauthorized(c, "not authorized, token failed")
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) (models.UserProfile, bool) {
	user, ok := c.Locals(userKey).(models.UserProfile)
	return user, ok
}
