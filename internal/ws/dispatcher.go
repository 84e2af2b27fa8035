// Package ws is the real-time protocol dispatcher: it authenticates
// the websocket handshake, registers the session with the hub, and
// routes inbound frames. Chat-topic joins are a delivery subscription
// only; membership is enforced when sending and reading, not here.
package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tatarskisamurai/pwa-chat/internal/auth"
	"github.com/tatarskisamurai/pwa-chat/internal/chat"
	"github.com/tatarskisamurai/pwa-chat/internal/hub"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/presence"
)

// CloseUnauthorized is sent before closing a connection that failed
// the credential check. The client distinguishes it from a transport
// error and does not retry with the same token.
const CloseUnauthorized = 4001

// Inbound frame kinds.
const (
	frameJoinChat    = "join_chat"
	frameLeaveChat   = "leave_chat"
	frameSendMessage = "send_message"
)

type frame struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
	MsgType string `json:"msg_type"`
}

// Sender is the coordinator operation the dispatcher needs.
type Sender interface {
	Send(ctx context.Context, chatID, authorID, content, kind string, attachments []models.Attachment) (*models.Message, error)
}

// UserSource resolves an authenticated subject to a stored user.
type UserSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Config struct {
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

type Dispatcher struct {
	hub      *hub.Hub
	sender   Sender
	users    UserSource
	jwt      *auth.JWTManager
	presence *presence.Store
	cfg      Config
	log      *zap.SugaredLogger
}

func NewDispatcher(h *hub.Hub, sender Sender, users UserSource, jwt *auth.JWTManager, pres *presence.Store, cfg Config, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{hub: h, sender: sender, users: users, jwt: jwt, presence: pres, cfg: cfg, log: log}
}

// Handle runs one connection from handshake to disconnect. It is
// mounted behind the fiber websocket upgrade middleware.
func (d *Dispatcher) Handle(conn *websocket.Conn) {
	ctx := context.Background()

	user, ok := d.authenticate(ctx, conn)
	if !ok {
		msg := websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	c := newClient(conn, user.ID, d.cfg.SendBuffer)
	go c.writePump(d.cfg.PingInterval, d.cfg.WriteDeadline, d.log)

	d.hub.JoinMailbox(c, user.ID)
	if err := d.presence.SetOnline(ctx, user.ID); err != nil {
		d.log.Warnw("presence online", "user_id", user.ID, "error", err)
	}
	d.log.Infow("websocket connected", "user_id", user.ID)

	defer func() {
		d.hub.Disconnect(c)
		c.close()
		if err := d.presence.SetOffline(ctx, user.ID); err != nil {
			d.log.Warnw("presence offline", "user_id", user.ID, "error", err)
		}
		d.log.Infow("websocket disconnected", "user_id", user.ID)
	}()

	conn.SetReadLimit(d.cfg.MaxMessageSize)
	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		d.dispatch(ctx, c, raw)
	}
}

// dispatch routes one frame. Malformed and unknown frames are ignored;
// the loop must survive anything the client sends.
func (d *Dispatcher) dispatch(ctx context.Context, c *client, raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return
	}
	switch f.Type {
	case frameJoinChat:
		if f.ChatID != "" {
			d.hub.Join(c, f.ChatID)
		}
	case frameLeaveChat:
		if f.ChatID != "" {
			d.hub.Leave(c, f.ChatID)
		}
	case frameSendMessage:
		if f.ChatID == "" || strings.TrimSpace(f.Content) == "" {
			return
		}
		if _, err := d.sender.Send(ctx, f.ChatID, c.userID, f.Content, f.MsgType, nil); err != nil {
			d.reply(c, chat.ErrorReply(f.ChatID, sendErrorText(err)))
		}
	default:
		// unknown frame kind
	}
}

func (d *Dispatcher) reply(c *client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = c.Deliver(payload)
}

func sendErrorText(err error) string {
	if chat.IsAuthorizationError(err) {
		return "not a chat member"
	}
	return "message not sent"
}

func (d *Dispatcher) authenticate(ctx context.Context, conn *websocket.Conn) (*models.User, bool) {
	token := conn.Query("token")
	if token == "" {
		token = auth.StripBearer(conn.Headers("Authorization"))
	}
	if token == "" {
		return nil, false
	}
	claims, err := d.jwt.Validate(token)
	if err != nil {
		return nil, false
	}
	user, err := d.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, false
	}
	return user, true
}
