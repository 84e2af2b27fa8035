package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
)

func setupMembership(t *testing.T) (*MembershipService, *repository.ChatRepository, string, string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()
	alice := &models.User{ID: uuid.New().String(), Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := &models.User{ID: uuid.New().String(), Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	for _, u := range []*models.User{alice, bob} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	chats := repository.NewChatRepository(db)
	return NewMembershipService(chats), chats, alice.ID, bob.ID
}

func TestFindOrCreatePrivateChat_Dedup(t *testing.T) {
	svc, chats, alice, bob := setupMembership(t)
	ctx := context.Background()

	first, err := svc.FindOrCreatePrivateChat(ctx, alice, bob)
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if first.Kind != models.ChatPrivate {
		t.Errorf("Kind = %q, want private", first.Kind)
	}

	// same pair again, both argument orders
	again, err := svc.FindOrCreatePrivateChat(ctx, alice, bob)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	reversed, err := svc.FindOrCreatePrivateChat(ctx, bob, alice)
	if err != nil {
		t.Fatalf("reversed call error: %v", err)
	}
	if again.ID != first.ID || reversed.ID != first.ID {
		t.Errorf("dedup broken: ids %s / %s / %s", first.ID, again.ID, reversed.ID)
	}

	// exactly one private chat row for the pair
	summaries, err := chats.ListForUser(ctx, alice, 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Errorf("user has %d chats, want 1", len(summaries))
	}

	ids, err := svc.MemberIDs(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("private chat has %d members, want exactly 2", len(ids))
	}
}

func TestFindOrCreatePrivateChat_SelfRejected(t *testing.T) {
	svc, _, alice, _ := setupMembership(t)
	if _, err := svc.FindOrCreatePrivateChat(context.Background(), alice, alice); err == nil {
		t.Fatal("self private chat was allowed")
	}
}

func TestMembership_IsMember(t *testing.T) {
	svc, _, alice, bob := setupMembership(t)
	ctx := context.Background()

	chat, err := svc.FindOrCreatePrivateChat(ctx, alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.IsMember(ctx, chat.ID, alice); err != nil {
		t.Errorf("IsMember(creator) error: %v", err)
	}
	if _, err := svc.IsMember(ctx, chat.ID, "stranger"); err != ErrNotMember {
		t.Errorf("IsMember(stranger) error = %v, want ErrNotMember", err)
	}
}
