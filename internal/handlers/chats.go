package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tatarskisamurai/pwa-chat/internal/chat"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

type ChatHandler struct {
	chats      *repository.ChatRepository
	membership *chat.MembershipService
}

func NewChatHandler(chats *repository.ChatRepository, membership *chat.MembershipService) *ChatHandler {
	return &ChatHandler{chats: chats, membership: membership}
}

type createChatRequest struct {
	Kind      string   `json:"type"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type renameChatRequest struct {
	Name *string `json:"name"`
}

type lastMessageView struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type chatView struct {
	ID           string           `json:"id"`
	Kind         string           `json:"type"`
	Name         string           `json:"name,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	MembersCount int64            `json:"members_count"`
	LastMessage  *lastMessageView `json:"last_message"`
}

func summaryView(s *repository.ChatSummary) chatView {
	v := chatView{
		ID:           s.Chat.ID,
		Kind:         s.Chat.Kind,
		Name:         s.Chat.Name,
		CreatedAt:    s.Chat.CreatedAt,
		MembersCount: s.MembersCount,
	}
	if s.LastMessage != nil {
		v.LastMessage = &lastMessageView{
			ID:        s.LastMessage.ID,
			Content:   s.LastMessage.Content,
			CreatedAt: s.LastMessage.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return v
}

// List returns the caller's chats, newest activity first.
func (h *ChatHandler) List(c *fiber.Ctx) error {
	user := CurrentUser(c)
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	summaries, err := h.chats.ListForUser(c.UserContext(), user.ID, skip, limit)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not list chats")
	}
	out := make([]chatView, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryView(s))
	}
	return c.JSON(out)
}

// Create makes a new chat. Private chats are deduplicated by the
// unordered member pair: creating one that already exists returns the
// existing chat.
func (h *ChatHandler) Create(c *fiber.Ctx) error {
	user := CurrentUser(c)
	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if req.Kind == "" {
		req.Kind = models.ChatPrivate
	}

	if req.Kind == models.ChatPrivate {
		other := ""
		for _, id := range req.MemberIDs {
			if id != user.ID {
				other = id
				break
			}
		}
		if other == "" {
			return JSONError(c, fiber.StatusBadRequest, "private chat needs one other member")
		}
		created, err := h.membership.FindOrCreatePrivateChat(c.UserContext(), user.ID, other)
		if err != nil {
			return JSONError(c, fiber.StatusInternalServerError, "could not create chat")
		}
		return h.respondWithChat(c, created)
	}

	group := &models.Chat{Kind: models.ChatGroup, Name: req.Name}
	if err := h.chats.Create(c.UserContext(), group, user.ID, req.MemberIDs); err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not create chat")
	}
	return h.respondWithChat(c, group)
}

// Get returns one chat, members only.
func (h *ChatHandler) Get(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("id")
	found, err := h.chats.FindByID(c.UserContext(), chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return JSONError(c, fiber.StatusNotFound, "Chat not found")
		}
		return JSONError(c, fiber.StatusInternalServerError, "could not load chat")
	}
	if _, err := h.membership.IsMember(c.UserContext(), chatID, user.ID); err != nil {
		return JSONError(c, fiber.StatusForbidden, "Not a member")
	}
	return h.respondWithChat(c, found)
}

// Update renames the chat; admins only.
func (h *ChatHandler) Update(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("id")
	var req renameChatRequest
	if err := c.BodyParser(&req); err != nil {
		return JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	role, err := h.membership.IsMember(c.UserContext(), chatID, user.ID)
	if err != nil || role != models.RoleAdmin {
		return JSONError(c, fiber.StatusForbidden, "Only admin can update")
	}
	if req.Name != nil {
		if err := h.chats.Rename(c.UserContext(), chatID, *req.Name); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return JSONError(c, fiber.StatusNotFound, "Chat not found")
			}
			return JSONError(c, fiber.StatusInternalServerError, "could not update chat")
		}
	}
	found, err := h.chats.FindByID(c.UserContext(), chatID)
	if err != nil {
		return JSONError(c, fiber.StatusNotFound, "Chat not found")
	}
	return h.respondWithChat(c, found)
}

// Delete removes the chat and everything in it; members only.
func (h *ChatHandler) Delete(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("id")
	if _, err := h.membership.IsMember(c.UserContext(), chatID, user.ID); err != nil {
		return JSONError(c, fiber.StatusForbidden, "Not a member")
	}
	if err := h.chats.Delete(c.UserContext(), chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return JSONError(c, fiber.StatusNotFound, "Chat not found")
		}
		return JSONError(c, fiber.StatusInternalServerError, "could not delete chat")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Members lists the membership rows of a chat, members only.
func (h *ChatHandler) Members(c *fiber.Ctx) error {
	user := CurrentUser(c)
	chatID := c.Params("id")
	if _, err := h.membership.IsMember(c.UserContext(), chatID, user.ID); err != nil {
		return JSONError(c, fiber.StatusForbidden, "Not a member")
	}
	members, err := h.chats.Members(c.UserContext(), chatID)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not list members")
	}
	return c.JSON(members)
}

func (h *ChatHandler) respondWithChat(c *fiber.Ctx, ch *models.Chat) error {
	s, err := h.chats.Summary(c.UserContext(), ch.ID)
	if err != nil {
		return JSONError(c, fiber.StatusInternalServerError, "could not load chat")
	}
	return c.JSON(summaryView(s))
}
