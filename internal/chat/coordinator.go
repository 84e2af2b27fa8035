// Package chat implements the message lifecycle: authorize, persist,
// then fan the event out to the chat room and to every member's user
// room. Both the websocket path and the REST path go through the
// Coordinator so the two entry points produce identical fanout.
package chat

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tatarskisamurai/pwa-chat/internal/events"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

var (
	// ErrNotAuthor is returned when a user edits or deletes a message
	// they did not write.
	ErrNotAuthor = errors.New("not the message author")
	// ErrEmptyContent is returned for messages with no content.
	ErrEmptyContent = errors.New("empty message content")
)

// Broadcaster is the fanout side of the hub consumed by the
// coordinator. Delivery is best-effort; these calls never fail.
type Broadcaster interface {
	BroadcastToChat(chatID string, event any)
	BroadcastToUser(userID string, event any)
}

// MessageStore is the persistence collaborator for messages.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Message, error)
	Delete(ctx context.Context, id string) error
}

// Membership answers the member questions the coordinator needs.
type Membership interface {
	IsMember(ctx context.Context, chatID, userID string) (string, error)
	MemberIDs(ctx context.Context, chatID string) ([]string, error)
}

type Coordinator struct {
	members   Membership
	store     MessageStore
	hub       Broadcaster
	publisher *events.Publisher
	log       *zap.SugaredLogger
}

func NewCoordinator(members Membership, store MessageStore, hub Broadcaster, publisher *events.Publisher, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{members: members, store: store, hub: hub, publisher: publisher, log: log}
}

// Send creates a message in the chat on behalf of authorID.
// The author must be a member; persistence failure aborts before any
// broadcast; broadcast failures never surface.
func (c *Coordinator) Send(ctx context.Context, chatID, authorID, content, kind string, attachments []models.Attachment) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return nil, ErrEmptyContent
	}
	if _, err := c.members.IsMember(ctx, chatID, authorID); err != nil {
		return nil, err
	}
	if kind == "" {
		if len(attachments) > 0 {
			kind = models.MessageImage
		} else {
			kind = models.MessageText
		}
	}
	msg := &models.Message{
		ChatID:      chatID,
		UserID:      authorID,
		Content:     content,
		Kind:        kind,
		Attachments: attachments,
	}
	if err := c.store.Create(ctx, msg); err != nil {
		return nil, err
	}
	c.publish(ctx, EventNewMessage, msg)
	c.fanout(ctx, chatID, NewMessage(msg))
	return msg, nil
}

// Edit replaces the content of a message. Only the author may edit,
// and the author must still be a chat member.
func (c *Coordinator) Edit(ctx context.Context, messageID, editorID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	msg, err := c.store.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != editorID {
		return nil, ErrNotAuthor
	}
	if _, err := c.members.IsMember(ctx, msg.ChatID, editorID); err != nil {
		return nil, err
	}
	updated, err := c.store.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventMessageUpdated, updated)
	c.fanout(ctx, updated.ChatID, MessageUpdated(updated))
	return updated, nil
}

// Delete removes a message. Only the author may delete.
func (c *Coordinator) Delete(ctx context.Context, messageID, userID string) error {
	msg, err := c.store.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return ErrNotAuthor
	}
	if _, err := c.members.IsMember(ctx, msg.ChatID, userID); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, messageID); err != nil {
		return err
	}
	c.publish(ctx, EventMessageDeleted, msg)
	c.fanout(ctx, msg.ChatID, MessageDeleted(msg.ID))
	return nil
}

// fanout broadcasts the chat event, then pokes every current member's
// user room so chat lists refresh. The member set is read fresh: a
// stale set from the request would miss members added meanwhile.
func (c *Coordinator) fanout(ctx context.Context, chatID string, event any) {
	c.hub.BroadcastToChat(chatID, event)
	memberIDs, err := c.members.MemberIDs(ctx, chatID)
	if err != nil {
		c.log.Warnw("skipping chats_updated fanout", "chat_id", chatID, "error", err)
		return
	}
	for _, uid := range memberIDs {
		c.hub.BroadcastToUser(uid, ChatsUpdated())
	}
}

func (c *Coordinator) publish(ctx context.Context, kind string, msg *models.Message) {
	if err := c.publisher.MessageEvent(ctx, kind, msg); err != nil {
		c.log.Warnw("publish message event", "kind", kind, "message_id", msg.ID, "error", err)
	}
}

// IsAuthorizationError reports whether err is one of the rejections a
// caller should surface as 403 rather than 500.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotMember) || errors.Is(err, ErrNotAuthor)
}
