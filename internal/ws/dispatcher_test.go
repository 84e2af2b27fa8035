package ws

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/tatarskisamurai/pwa-chat/internal/chat"
	"github.com/tatarskisamurai/pwa-chat/internal/hub"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

type fakeSender struct {
	calls []struct{ chatID, authorID, content, kind string }
	err   error
}

func (f *fakeSender) Send(_ context.Context, chatID, authorID, content, kind string, _ []models.Attachment) (*models.Message, error) {
	f.calls = append(f.calls, struct{ chatID, authorID, content, kind string }{chatID, authorID, content, kind})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: "m1", ChatID: chatID, UserID: authorID, Content: content}, nil
}

func testDispatcher(sender *fakeSender) (*Dispatcher, *hub.Hub) {
	log := zap.NewNop().Sugar()
	h := hub.New(log)
	d := NewDispatcher(h, sender, nil, nil, nil, Config{SendBuffer: 8}, log)
	return d, h
}

func drain(c *client) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-c.send:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestDispatch_Frames(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantSends int
	}{
		{name: "send_message", raw: `{"type":"send_message","chat_id":"c1","content":"hi"}`, wantSends: 1},
		{name: "send_message with kind", raw: `{"type":"send_message","chat_id":"c1","content":"pic","msg_type":"image"}`, wantSends: 1},
		{name: "send_message without chat", raw: `{"type":"send_message","content":"hi"}`, wantSends: 0},
		{name: "send_message blank content", raw: `{"type":"send_message","chat_id":"c1","content":"  "}`, wantSends: 0},
		{name: "malformed json", raw: `{"type":`, wantSends: 0},
		{name: "unknown kind", raw: `{"type":"dance"}`, wantSends: 0},
		{name: "join without chat", raw: `{"type":"join_chat"}`, wantSends: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			d, _ := testDispatcher(sender)
			c := newClient(nil, "u1", 8)

			d.dispatch(context.Background(), c, []byte(tt.raw))

			if len(sender.calls) != tt.wantSends {
				t.Errorf("sender called %d times, want %d", len(sender.calls), tt.wantSends)
			}
		})
	}
}

func TestDispatch_JoinLeaveRouting(t *testing.T) {
	sender := &fakeSender{}
	d, h := testDispatcher(sender)
	c := newClient(nil, "u1", 8)

	d.dispatch(context.Background(), c, []byte(`{"type":"join_chat","chat_id":"c1"}`))
	h.BroadcastToChat("c1", chat.ChatsUpdated())
	if got := len(drain(c)); got != 1 {
		t.Fatalf("after join_chat got %d deliveries, want 1", got)
	}

	d.dispatch(context.Background(), c, []byte(`{"type":"leave_chat","chat_id":"c1"}`))
	h.BroadcastToChat("c1", chat.ChatsUpdated())
	if got := len(drain(c)); got != 0 {
		t.Fatalf("after leave_chat got %d deliveries, want 0", got)
	}
}

func TestDispatch_RejectedSendGetsErrorFrame(t *testing.T) {
	sender := &fakeSender{err: chat.ErrNotMember}
	d, _ := testDispatcher(sender)
	c := newClient(nil, "u1", 8)

	d.dispatch(context.Background(), c, []byte(`{"type":"send_message","chat_id":"c1","content":"hi"}`))

	frames := drain(c)
	if len(frames) != 1 {
		t.Fatalf("got %d reply frames, want 1", len(frames))
	}
	var reply chat.ErrorEvent
	if err := json.Unmarshal(frames[0], &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.Type != chat.EventError || reply.ChatID != "c1" {
		t.Errorf("reply = %+v, want error event for c1", reply)
	}
}

func TestDispatch_SendUsesAuthenticatedIdentity(t *testing.T) {
	sender := &fakeSender{}
	d, _ := testDispatcher(sender)
	c := newClient(nil, "authenticated-user", 8)

	d.dispatch(context.Background(), c, []byte(`{"type":"send_message","chat_id":"c1","content":"hi"}`))

	if sender.calls[0].authorID != "authenticated-user" {
		t.Errorf("authorID = %q, want connection identity", sender.calls[0].authorID)
	}
	if sender.calls[0].kind != "" {
		t.Errorf("kind = %q, want empty (coordinator defaults it)", sender.calls[0].kind)
	}
}
