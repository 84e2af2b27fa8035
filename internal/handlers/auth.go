package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tatarskisamurai/pwa-chat/internal/auth"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

type AuthHandler struct {
	users *repository.UserRepository
	jwt   *auth.JWTManager
}

func NewAuthHandler(users *repository.UserRepository, jwt *auth.JWTManager) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// Register creates an account and returns a fresh token.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		return JSONError(c, fiber.StatusBadRequest, "username, email and a password of at least 6 characters are required")
	}

	if _, err := h.users.FindByEmail(c.UserContext(), req.Email); err == nil {
		return JSONError(c, fiber.StatusBadRequest, "Email already registered")
	}
	if _, err := h.users.FindByUsername(c.UserContext(), req.Username); err == nil {
		return JSONError(c, fiber.StatusBadRequest, "Username already taken")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not hash password")
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return JSONError(c, fiber.StatusBadRequest, "Email already registered")
		}
		return JSONError(c, fiber.StatusInternalServerError, "could not create user")
	}

	return h.token(c, user)
}

// Login verifies the password and returns a token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	user, err := h.users.FindByEmail(c.UserContext(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return JSONError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	return h.token(c, user)
}

func (h *AuthHandler) token(c *fiber.Ctx, user *models.User) error {
	token, err := h.jwt.Generate(user.ID, user.Username)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}
