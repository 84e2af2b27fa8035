package chat

import (
	"time"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

// Outbound event tags.
const (
	EventNewMessage     = "new_message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventChatsUpdated   = "chats_updated"
	EventError          = "error"
)

type AttachmentPayload struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Kind     string `json:"type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type MessagePayload struct {
	ID          string              `json:"id"`
	ChatID      string              `json:"chat_id"`
	UserID      string              `json:"user_id"`
	Content     string              `json:"content"`
	Kind        string              `json:"type"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at,omitempty"`
	Attachments []AttachmentPayload `json:"attachments"`
}

func messagePayload(m *models.Message) MessagePayload {
	atts := make([]AttachmentPayload, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		atts = append(atts, AttachmentPayload{ID: a.ID, URL: a.URL, Kind: a.Kind, Filename: a.Filename})
	}
	p := MessagePayload{
		ID:          m.ID,
		ChatID:      m.ChatID,
		UserID:      m.UserID,
		Content:     m.Content,
		Kind:        m.Kind,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
		Attachments: atts,
	}
	if m.UpdatedAt.After(m.CreatedAt) {
		p.UpdatedAt = m.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}

// NewMessageEvent announces a message created in a chat.
type NewMessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

func NewMessage(m *models.Message) NewMessageEvent {
	return NewMessageEvent{Type: EventNewMessage, Message: messagePayload(m)}
}

// MessageUpdatedEvent announces an edited message.
type MessageUpdatedEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

func MessageUpdated(m *models.Message) MessageUpdatedEvent {
	return MessageUpdatedEvent{Type: EventMessageUpdated, Message: messagePayload(m)}
}

// MessageDeletedEvent announces a deleted message.
type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

func MessageDeleted(messageID string) MessageDeletedEvent {
	return MessageDeletedEvent{Type: EventMessageDeleted, MessageID: messageID}
}

// ChatsUpdatedEvent tells a user that their chat list changed.
type ChatsUpdatedEvent struct {
	Type string `json:"type"`
}

func ChatsUpdated() ChatsUpdatedEvent {
	return ChatsUpdatedEvent{Type: EventChatsUpdated}
}

// ErrorEvent is sent back to the offending connection only, never
// broadcast.
type ErrorEvent struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	ChatID string `json:"chat_id,omitempty"`
}

func ErrorReply(chatID, msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: msg, ChatID: chatID}
}
