// Package handlers contains the REST endpoints. Message writes go
// through the lifecycle coordinator so REST and websocket sends fan
// out identically.
package handlers

import "github.com/gofiber/fiber/v2"

// JSONError writes the error body the frontend expects.
func JSONError(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}
