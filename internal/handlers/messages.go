package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tatarskisamurai/pwa-chat/internal/chat"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

type MessageHandler struct {
	messages   *repository.MessageRepository
	membership *chat.MembershipService
	coord      *chat.Coordinator
}

func NewMessageHandler(messages *repository.MessageRepository, membership *chat.MembershipService, coord *chat.Coordinator) *MessageHandler {
	return &MessageHandler{messages: messages, membership: membership, coord: coord}
}

type attachmentRequest struct {
	URL      string `json:"url"`
	Kind     string `json:"type"`
	Filename string `json:"filename"`
}

type createMessageRequest struct {
	Content     string              `json:"content"`
	Kind        string              `json:"type"`
	Attachments []attachmentRequest `json:"attachments"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// List returns one page of chat history, members only.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("chat_id")
	if _, err := h.membership.IsMember(c.UserContext(), chatID, user.ID); err != nil {
		return JSONError(c, fiber.StatusForbidden, "Not a member")
	}
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	msgs, err := h.messages.ListForChat(c.UserContext(), chatID, skip, limit)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not list messages")
	}
	return c.JSON(msgs)
}

// Create persists and fans out a message through the coordinator, the
// same path the websocket dispatcher uses.
func (h *MessageHandler) Create(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("chat_id")
	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	atts := make([]models.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		atts = append(atts, models.Attachment{URL: a.URL, Kind: a.Kind, Filename: a.Filename})
	}

	msg, err := h.coord.Send(c.UserContext(), chatID, user.ID, req.Content, req.Kind, atts)
	if err != nil {
		return h.coordinatorError(c, err)
	}
	return c.JSON(msg)
}

// Edit replaces message content; author only.
func (h *MessageHandler) Edit(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req editMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	msg, err := h.coord.Edit(c.UserContext(), c.Params("id"), user.ID, req.Content)
	if err != nil {
		return h.coordinatorError(c, err)
	}
	return c.JSON(msg)
}

// Delete removes a message; author only.
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if err := h.coord.Delete(c.UserContext(), c.Params("id"), user.ID); err != nil {
		return h.coordinatorError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Search finds messages across the caller's chats.
func (h *MessageHandler) Search(c *fiber.Ctx) error {
	user := CurrentUser(c)
	q := c.Query("q")
	if q == "" {
		return JSONError(c, fiber.StatusBadRequest, "q is required")
	}
	msgs, err := h.messages.Search(c.UserContext(), user.ID, q, c.Query("chat_id"), 50)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not search messages")
	}
	return c.JSON(msgs)
}

func (h *MessageHandler) coordinatorError(c *fiber.Ctx, err error) error {
	switch {
	case chat.IsAuthorizationError(err):
		return JSONError(c, fiber.StatusForbidden, "Not allowed")
	case errors.Is(err, repository.ErrNotFound):
		return JSONError(c, fiber.StatusNotFound, "Message not found")
	case errors.Is(err, chat.ErrEmptyContent):
		return JSONError(c, fiber.StatusBadRequest, "empty message")
	default:
		return JSONError(c, fiber.StatusInternalServerError, "operation failed")
	}
}
