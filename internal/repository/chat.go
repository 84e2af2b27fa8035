package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// ChatSummary is a chat with the list-view extras: member count and
// the newest message, used for the chat list preview.
type ChatSummary struct {
	Chat         *models.Chat
	MembersCount int64
	LastMessage  *models.Message
}

// PairKey builds the order-independent identity of a private chat.
func PairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// Create stores the chat together with its membership rows. The
// creator becomes admin, everyone else a member.
func (r *ChatRepository) Create(ctx context.Context, chat *models.Chat, creatorID string, memberIDs []string) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		members := []models.ChatMember{{
			ID:     uuid.New().String(),
			ChatID: chat.ID,
			UserID: creatorID,
			Role:   models.RoleAdmin,
		}}
		for _, uid := range memberIDs {
			if uid == creatorID {
				continue
			}
			members = append(members, models.ChatMember{
				ID:     uuid.New().String(),
				ChatID: chat.ID,
				UserID: uid,
				Role:   models.RoleMember,
			})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id string) (*models.Chat, error) {
	var c models.Chat
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find chat: %w", err)
	}
	return &c, nil
}

// FindPrivateByPair returns the private chat between the two users,
// regardless of argument order.
func (r *ChatRepository) FindPrivateByPair(ctx context.Context, userA, userB string) (*models.Chat, error) {
	var c models.Chat
	err := r.db.WithContext(ctx).
		Where("kind = ? AND pair_key = ?", models.ChatPrivate, PairKey(userA, userB)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find private chat: %w", err)
	}
	return &c, nil
}

// ListForUser returns the chats the user belongs to, newest activity
// first, with list-view extras.
func (r *ChatRepository) ListForUser(ctx context.Context, userID string, skip, limit int) ([]*ChatSummary, error) {
	var chats []*models.Chat
	sub := r.db.Model(&models.ChatMember{}).Select("chat_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("updated_at DESC").
		Offset(skip).Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	out := make([]*ChatSummary, 0, len(chats))
	for _, c := range chats {
		s, err := r.summarize(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Summary returns one chat with its list-view extras.
func (r *ChatRepository) Summary(ctx context.Context, chatID string) (*ChatSummary, error) {
	c, err := r.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, c)
}

func (r *ChatRepository) summarize(ctx context.Context, c *models.Chat) (*ChatSummary, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChatMember{}).Where("chat_id = ?", c.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	var last models.Message
	lastPtr := &last
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", c.ID).
		Order("created_at DESC").
		First(&last).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("last message: %w", err)
		}
		lastPtr = nil
	}
	return &ChatSummary{Chat: c, MembersCount: count, LastMessage: lastPtr}, nil
}

func (r *ChatRepository) Rename(ctx context.Context, id, name string) error {
	res := r.db.WithContext(ctx).Model(&models.Chat{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("rename chat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the chat and, through the cascade, its members,
// messages and attachments.
func (r *ChatRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgIDs []string
		if err := tx.Model(&models.Message{}).Where("chat_id = ?", id).Pluck("id", &msgIDs).Error; err != nil {
			return err
		}
		if len(msgIDs) > 0 {
			if err := tx.Where("message_id IN ?", msgIDs).Delete(&models.Attachment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", id).Delete(&models.ChatMember{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Chat{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// MemberRole returns the user's role in the chat, or ErrNotMember.
func (r *ChatRepository) MemberRole(ctx context.Context, chatID, userID string) (string, error) {
	var m models.ChatMember
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("member role: %w", err)
	}
	return m.Role, nil
}

func (r *ChatRepository) MemberIDs(ctx context.Context, chatID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ChatMember{}).
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("member ids: %w", err)
	}
	return ids, nil
}

// Members returns the membership rows of a chat.
func (r *ChatRepository) Members(ctx context.Context, chatID string) ([]*models.ChatMember, error) {
	var members []*models.ChatMember
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("joined_at").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}
	return members, nil
}
