// Package hub tracks live websocket sessions and fans payloads out to
// them. Rooms exist per chat and per user: chat rooms carry message
// events to everyone currently subscribed, user rooms carry the
// chats_updated signal to every session of one user.
package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Session is one live client connection. Deliver hands the session a
// serialized payload and reports failure when the connection is no
// longer usable; the hub reacts by disconnecting the session.
type Session interface {
	Deliver(payload []byte) error
}

// Hub is the connection registry and broadcaster. All maps are guarded
// by one mutex; none of the operations block, so the coarse lock is
// never held across I/O.
type Hub struct {
	mu sync.RWMutex
	// chatRooms and joined are each other's inverse: a session is in
	// chatRooms[id] iff id is in joined[session].
	chatRooms map[string]map[Session]struct{}
	joined    map[Session]map[string]struct{}
	userRooms map[string]map[Session]struct{}
	userOf    map[Session]string

	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Hub {
	return &Hub{
		chatRooms: make(map[string]map[Session]struct{}),
		joined:    make(map[Session]map[string]struct{}),
		userRooms: make(map[string]map[Session]struct{}),
		userOf:    make(map[Session]string),
		log:       log,
	}
}

// Join subscribes the session to a chat room. Idempotent; the room is
// created on first join.
func (h *Hub) Join(s Session, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chatRooms[chatID]; !ok {
		h.chatRooms[chatID] = make(map[Session]struct{})
	}
	h.chatRooms[chatID][s] = struct{}{}
	if _, ok := h.joined[s]; !ok {
		h.joined[s] = make(map[string]struct{})
	}
	h.joined[s][chatID] = struct{}{}
}

// JoinMailbox binds the session to its user's room. A session holds at
// most one binding; rebinding replaces the previous one.
func (h *Hub) JoinMailbox(s Session, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.userOf[s]; ok {
		h.dropUserRoomLocked(s, prev)
	}
	if _, ok := h.userRooms[userID]; !ok {
		h.userRooms[userID] = make(map[Session]struct{})
	}
	h.userRooms[userID][s] = struct{}{}
	h.userOf[s] = userID
}

// Leave unsubscribes the session from a chat room. Leaving a room the
// session never joined is a no-op; a room left empty is pruned.
func (h *Hub) Leave(s Session, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropChatRoomLocked(s, chatID)
}

// Disconnect removes the session from every chat room and from its
// user room, pruning rooms left empty. Safe to call repeatedly and
// from concurrent cleanup paths.
func (h *Hub) Disconnect(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID := range h.joined[s] {
		h.dropChatRoomLocked(s, chatID)
	}
	delete(h.joined, s)
	if userID, ok := h.userOf[s]; ok {
		h.dropUserRoomLocked(s, userID)
		delete(h.userOf, s)
	}
}

func (h *Hub) dropChatRoomLocked(s Session, chatID string) {
	if room, ok := h.chatRooms[chatID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
	if rooms, ok := h.joined[s]; ok {
		delete(rooms, chatID)
	}
}

func (h *Hub) dropUserRoomLocked(s Session, userID string) {
	if room, ok := h.userRooms[userID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.userRooms, userID)
		}
	}
}

// BroadcastToChat serializes the event once and delivers it to every
// session currently in the chat room.
func (h *Hub) BroadcastToChat(chatID string, event any) {
	h.broadcast(h.snapshotChat(chatID), event)
}

// BroadcastToUser serializes the event once and delivers it to every
// session of the user.
func (h *Hub) BroadcastToUser(userID string, event any) {
	h.broadcast(h.snapshotUser(userID), event)
}

func (h *Hub) snapshotChat(chatID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return collect(h.chatRooms[chatID])
}

func (h *Hub) snapshotUser(userID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return collect(h.userRooms[userID])
}

func collect(room map[Session]struct{}) []Session {
	if len(room) == 0 {
		return nil
	}
	out := make([]Session, 0, len(room))
	for s := range room {
		out = append(out, s)
	}
	return out
}

// broadcast is best-effort: a failed delivery never stops the pass and
// never reaches the caller. Sessions that fail are fully disconnected
// after the pass so they cannot linger in other rooms either.
func (h *Hub) broadcast(sessions []Session, event any) {
	if len(sessions) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Errorw("marshal broadcast event", "error", err)
		return
	}
	var dead []Session
	for _, s := range sessions {
		if err := s.Deliver(payload); err != nil {
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		h.log.Debugw("dropping dead session during broadcast")
		h.Disconnect(s)
	}
}
