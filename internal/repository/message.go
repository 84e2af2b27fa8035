package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores the message with its attachments and bumps the chat's
// updated_at so the chat list reorders by latest activity.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].ID == "" {
			msg.Attachments[i].ID = uuid.New().String()
		}
		msg.Attachments[i].MessageID = msg.ID
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", msg.ChatID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := r.db.WithContext(ctx).Preload("Attachments").First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &m, nil
}

// ListForChat returns one page of chat history in ascending order.
// The page is selected newest-first and reversed, so skip/limit walk
// backwards from the latest message.
func (r *MessageRepository) ListForChat(ctx context.Context, chatID string, skip, limit int) ([]*models.Message, error) {
	var msgs []*models.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Offset(skip).Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// UpdateContent replaces the message content and returns the reloaded
// message.
func (r *MessageRepository) UpdateContent(ctx context.Context, id, content string) (*models.Message, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("update message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes the message and its attachments.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Message{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Search finds messages containing q, restricted to chats the user is
// a member of; chatID narrows the search to one chat when non-empty.
func (r *MessageRepository) Search(ctx context.Context, userID, q, chatID string, limit int) ([]*models.Message, error) {
	sub := r.db.Model(&models.ChatMember{}).Select("chat_id").Where("user_id = ?", userID)
	query := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("chat_id IN (?)", sub).
		Where("LOWER(content) LIKE ?", "%"+strings.ToLower(q)+"%")
	if chatID != "" {
		query = query.Where("chat_id = ?", chatID)
	}
	var msgs []*models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return msgs, nil
}
