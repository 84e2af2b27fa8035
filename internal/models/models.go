// Package models defines the persisted entities: users, chats with
// their memberships, and messages with their attachments.
package models

import "time"

// Chat kinds.
const (
	ChatPrivate = "private"
	ChatGroup   = "group"
)

// Member roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Message kinds.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

type User struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Avatar       string    `gorm:"size:500" json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Chat struct {
	ID   string `gorm:"primarykey;size:36" json:"id"`
	Kind string `gorm:"size:20;not null;default:private" json:"type"`
	Name string `gorm:"size:255" json:"name,omitempty"`
	// PairKey is the sorted "<idA>:<idB>" pair for private chats; the
	// unique index is what makes private-chat dedup hold under
	// concurrent creation. Nil for group chats.
	PairKey   *string      `gorm:"size:80;uniqueIndex" json:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Members   []ChatMember `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Messages  []Message    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Chat) TableName() string { return "chats" }

type ChatMember struct {
	ID       string    `gorm:"primarykey;size:36" json:"id"`
	ChatID   string    `gorm:"size:36;index:idx_chat_user,unique;not null" json:"chat_id"`
	UserID   string    `gorm:"size:36;index:idx_chat_user,unique;index;not null" json:"user_id"`
	Role     string    `gorm:"size:20;default:member" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (ChatMember) TableName() string { return "chat_members" }

type Message struct {
	ID          string       `gorm:"primarykey;size:36" json:"id"`
	ChatID      string       `gorm:"size:36;index;not null" json:"chat_id"`
	UserID      string       `gorm:"size:36;not null" json:"user_id"`
	Content     string       `gorm:"type:text" json:"content"`
	Kind        string       `gorm:"size:20;default:text" json:"type"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Attachments []Attachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments"`
}

func (Message) TableName() string { return "messages" }

type Attachment struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	MessageID string    `gorm:"size:36;index;not null" json:"-"`
	URL       string    `gorm:"size:500;not null" json:"url"`
	Kind      string    `gorm:"size:50" json:"type,omitempty"`
	Filename  string    `gorm:"size:255" json:"filename,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Attachment) TableName() string { return "attachments" }

// All lists every entity for migration.
func All() []any {
	return []any{&User{}, &Chat{}, &ChatMember{}, &Message{}, &Attachment{}}
}
