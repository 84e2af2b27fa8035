// Package repository provides gorm-backed persistence for users, chats
// and messages.
package repository

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique-constraint violations.
	ErrDuplicate = errors.New("already exists")
	// ErrNotMember is returned when a user does not belong to a chat.
	ErrNotMember = errors.New("not a chat member")
)
