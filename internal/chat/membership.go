package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

// ErrNotMember is returned when a user does not belong to the chat.
var ErrNotMember = repository.ErrNotMember

// MembershipService answers membership questions and owns private-chat
// deduplication.
type MembershipService struct {
	chats *repository.ChatRepository
}

func NewMembershipService(chats *repository.ChatRepository) *MembershipService {
	return &MembershipService{chats: chats}
}

// IsMember returns the user's role in the chat, or ErrNotMember.
func (s *MembershipService) IsMember(ctx context.Context, chatID, userID string) (string, error) {
	return s.chats.MemberRole(ctx, chatID, userID)
}

// MemberIDs returns the current member set of the chat.
func (s *MembershipService) MemberIDs(ctx context.Context, chatID string) ([]string, error) {
	return s.chats.MemberIDs(ctx, chatID)
}

// FindOrCreatePrivateChat returns the private chat between the two
// users, creating it on first use. The pair is unordered: (a,b) and
// (b,a) resolve to the same chat. Concurrent first calls race on the
// pair-key unique index; the loser re-reads the winner's row.
func (s *MembershipService) FindOrCreatePrivateChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	if userA == userB {
		return nil, fmt.Errorf("private chat requires two distinct users")
	}
	existing, err := s.chats.FindPrivateByPair(ctx, userA, userB)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	key := repository.PairKey(userA, userB)
	chat := &models.Chat{Kind: models.ChatPrivate, PairKey: &key}
	if err := s.chats.Create(ctx, chat, userA, []string{userB}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.chats.FindPrivateByPair(ctx, userA, userB)
		}
		return nil, err
	}
	return chat, nil
}
