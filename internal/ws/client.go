package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var errSessionClosed = errors.New("session closed")

// client is one live websocket session. Delivery goes through a
// buffered channel drained by the write pump; the reader goroutine
// never writes to the socket itself.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(conn *websocket.Conn, userID string, buffer int) *client {
	return &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Deliver queues a payload for the write pump. A closed session or a
// full buffer (the reader side is gone or hopelessly stalled) counts
// as a failed delivery so the hub disconnects us.
func (c *client) Deliver(payload []byte) error {
	select {
	case <-c.done:
		return errSessionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errSessionClosed
	default:
		return errors.New("send buffer full")
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump is the only goroutine writing to the connection. It
// drains the send queue and keeps the connection alive with pings.
func (c *client) writePump(pingInterval, writeDeadline time.Duration, log *zap.SugaredLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debugw("websocket write failed", "user_id", c.userID, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
