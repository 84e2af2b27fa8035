package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tatarskisamurai/pwa-chat/internal/auth"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

const userLocal = "current_user"

// RequireAuth validates the bearer token and loads the user into the
// request locals.
func RequireAuth(jwt *auth.JWTManager, users *repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.StripBearer(c.Get("Authorization"))
		if token == "" {
			return JSONError(c, fiber.StatusUnauthorized, "Not authenticated")
		}
		claims, err := jwt.Validate(token)
		if err != nil {
			return JSONError(c, fiber.StatusUnauthorized, "Invalid token")
		}
		user, err := users.FindByID(c.UserContext(), claims.Subject)
		if err != nil {
			return JSONError(c, fiber.StatusUnauthorized, "User not found")
		}
		c.Locals(userLocal, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userLocal).(*models.User)
	return u
}
