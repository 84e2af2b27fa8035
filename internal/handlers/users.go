package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tatarskisamurai/pwa-chat/internal/presence"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

type UserHandler struct {
	users    *repository.UserRepository
	presence *presence.Store
}

func NewUserHandler(users *repository.UserRepository, pres *presence.Store) *UserHandler {
	return &UserHandler{users: users, presence: pres}
}

type userView struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar,omitempty"`
	OnlineStatus string `json:"online_status"`
}

// List returns every registered user with their presence.
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not list users")
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		status, err := h.presence.Get(c.UserContext(), u.ID)
		if err != nil {
			status = "offline"
		}
		out = append(out, userView{ID: u.ID, Username: u.Username, Email: u.Email, Avatar: u.Avatar, OnlineStatus: status})
	}
	return c.JSON(out)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	return c.JSON(CurrentUser(c))
}
