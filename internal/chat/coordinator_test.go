package chat

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

type fakeMembership struct {
	members map[string][]string // chatID -> member ids
}

func (f *fakeMembership) IsMember(_ context.Context, chatID, userID string) (string, error) {
	for _, id := range f.members[chatID] {
		if id == userID {
			return models.RoleMember, nil
		}
	}
	return "", ErrNotMember
}

func (f *fakeMembership) MemberIDs(_ context.Context, chatID string) ([]string, error) {
	return f.members[chatID], nil
}

type fakeStore struct {
	byID      map[string]*models.Message
	createErr error
	created   []*models.Message
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[string]*models.Message)}
}

func (f *fakeStore) Create(_ context.Context, msg *models.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	if msg.ID == "" {
		msg.ID = "m1"
	}
	f.byID[msg.ID] = msg
	f.created = append(f.created, msg)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*models.Message, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) UpdateContent(_ context.Context, id, content string) (*models.Message, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.Content = content
	return m, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type recordedBroadcast struct {
	topic string
	event any
}

type fakeBroadcaster struct {
	toChat []recordedBroadcast
	toUser []recordedBroadcast
}

func (f *fakeBroadcaster) BroadcastToChat(chatID string, event any) {
	f.toChat = append(f.toChat, recordedBroadcast{chatID, event})
}

func (f *fakeBroadcaster) BroadcastToUser(userID string, event any) {
	f.toUser = append(f.toUser, recordedBroadcast{userID, event})
}

func setup(members map[string][]string) (*Coordinator, *fakeStore, *fakeBroadcaster) {
	store := newFakeStore()
	b := &fakeBroadcaster{}
	c := NewCoordinator(&fakeMembership{members: members}, store, b, nil, zap.NewNop().Sugar())
	return c, store, b
}

func TestSend_MemberBroadcasts(t *testing.T) {
	c, store, b := setup(map[string][]string{"c1": {"u1", "u2", "u3"}})

	msg, err := c.Send(context.Background(), "c1", "u1", "hello", "", nil)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if msg.Kind != models.MessageText {
		t.Errorf("Kind = %q, want default %q", msg.Kind, models.MessageText)
	}
	if len(store.created) != 1 {
		t.Fatalf("persisted %d messages, want 1", len(store.created))
	}

	if len(b.toChat) != 1 {
		t.Fatalf("got %d chat broadcasts, want 1", len(b.toChat))
	}
	ev, ok := b.toChat[0].event.(NewMessageEvent)
	if !ok || ev.Type != EventNewMessage {
		t.Fatalf("chat broadcast = %#v, want new_message event", b.toChat[0].event)
	}
	if ev.Message.Content != "hello" || ev.Message.UserID != "u1" {
		t.Errorf("event message = %+v", ev.Message)
	}

	// one chats_updated per current member, including the sender
	if len(b.toUser) != 3 {
		t.Fatalf("got %d mailbox broadcasts, want 3", len(b.toUser))
	}
	seen := map[string]bool{}
	for _, rec := range b.toUser {
		if _, ok := rec.event.(ChatsUpdatedEvent); !ok {
			t.Errorf("mailbox event = %#v, want chats_updated", rec.event)
		}
		seen[rec.topic] = true
	}
	for _, uid := range []string{"u1", "u2", "u3"} {
		if !seen[uid] {
			t.Errorf("member %s did not get chats_updated", uid)
		}
	}
}

func TestSend_NonMemberRejected(t *testing.T) {
	c, store, b := setup(map[string][]string{"c1": {"u1"}})

	_, err := c.Send(context.Background(), "c1", "intruder", "hello", "", nil)
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("Send() error = %v, want ErrNotMember", err)
	}
	if len(store.created) != 0 {
		t.Error("message was persisted despite rejection")
	}
	if len(b.toChat) != 0 || len(b.toUser) != 0 {
		t.Error("broadcasts happened despite rejection")
	}
}

func TestSend_PersistenceFailureNoBroadcast(t *testing.T) {
	c, store, b := setup(map[string][]string{"c1": {"u1"}})
	store.createErr = errors.New("db down")

	_, err := c.Send(context.Background(), "c1", "u1", "hello", "", nil)
	if err == nil {
		t.Fatal("Send() error = nil, want persistence error")
	}
	if len(b.toChat) != 0 || len(b.toUser) != 0 {
		t.Error("broadcasts happened despite persistence failure")
	}
}

func TestSend_EmptyContentRejected(t *testing.T) {
	c, _, b := setup(map[string][]string{"c1": {"u1"}})
	if _, err := c.Send(context.Background(), "c1", "u1", "   ", "", nil); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("Send() error = %v, want ErrEmptyContent", err)
	}
	if len(b.toChat) != 0 {
		t.Error("broadcast happened for empty message")
	}
}

func TestEdit_AuthorOnly(t *testing.T) {
	c, store, b := setup(map[string][]string{"c1": {"u1", "u2"}})
	store.byID["m1"] = &models.Message{ID: "m1", ChatID: "c1", UserID: "u1", Content: "old"}

	if _, err := c.Edit(context.Background(), "m1", "u2", "hacked"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("Edit() by non-author error = %v, want ErrNotAuthor", err)
	}
	if len(b.toChat) != 0 {
		t.Error("broadcast happened for rejected edit")
	}

	updated, err := c.Edit(context.Background(), "m1", "u1", "new text")
	if err != nil {
		t.Fatalf("Edit() by author error: %v", err)
	}
	if updated.Content != "new text" {
		t.Errorf("Content = %q, want %q", updated.Content, "new text")
	}
	if len(b.toChat) != 1 {
		t.Fatalf("got %d chat broadcasts, want 1", len(b.toChat))
	}
	if ev, ok := b.toChat[0].event.(MessageUpdatedEvent); !ok || ev.Type != EventMessageUpdated {
		t.Errorf("chat broadcast = %#v, want message_updated", b.toChat[0].event)
	}
	if len(b.toUser) != 2 {
		t.Errorf("got %d mailbox broadcasts, want 2", len(b.toUser))
	}
}

func TestDelete_AuthorOnly(t *testing.T) {
	c, store, b := setup(map[string][]string{"c1": {"u1", "u2"}})
	store.byID["m1"] = &models.Message{ID: "m1", ChatID: "c1", UserID: "u1"}

	if err := c.Delete(context.Background(), "m1", "u2"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("Delete() by non-author error = %v, want ErrNotAuthor", err)
	}
	if len(store.deleted) != 0 {
		t.Error("message deleted despite rejection")
	}

	if err := c.Delete(context.Background(), "m1", "u1"); err != nil {
		t.Fatalf("Delete() by author error: %v", err)
	}
	if len(b.toChat) != 1 {
		t.Fatalf("got %d chat broadcasts, want 1", len(b.toChat))
	}
	ev, ok := b.toChat[0].event.(MessageDeletedEvent)
	if !ok || ev.Type != EventMessageDeleted || ev.MessageID != "m1" {
		t.Errorf("chat broadcast = %#v, want message_deleted for m1", b.toChat[0].event)
	}
	if len(b.toUser) != 2 {
		t.Errorf("got %d mailbox broadcasts, want 2", len(b.toUser))
	}
}

func TestDelete_MissingMessage(t *testing.T) {
	c, _, _ := setup(map[string][]string{"c1": {"u1"}})
	if err := c.Delete(context.Background(), "nope", "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}
