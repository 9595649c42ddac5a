package middleware

import (
	"errors"
	"strings"

	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// UserKey is the c.Locals key holding the authenticated *models.User.
const UserKey = "user"

// AuthRequired is a Fiber middleware to check for a valid bearer token and
// resolve the user it was issued for.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Not authorized, no token")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return unauthorized(c, "Not authorized, no token")
		}

		user, err := authService.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUserNotFound):
				return unauthorized(c, "Not authorized, user not found")
			case errors.Is(err, services.ErrInvalidToken):
				log.WithError(err).Debug("token rejected")
				return unauthorized(c, "Not authorized, token failed")
			default:
				return err
			}
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(UserKey).(*models.User)
	return user
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
