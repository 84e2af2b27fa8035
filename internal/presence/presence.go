// Package presence tracks which users currently hold a live
// connection, in redis so other processes (and a future proxy tier)
// can read it.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore returns nil when no client is configured; a nil Store is a
// no-op, presence tracking simply stays off.
func NewStore(client *redis.Client, prefix string) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, prefix: prefix, ttl: defaultTTL}
}

type status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// SetOnline marks the user online and counts one live connection.
func (s *Store) SetOnline(ctx context.Context, userID string) error {
	if s == nil {
		return nil
	}
	if err := s.client.Incr(ctx, s.key(userID)+":conns").Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.key(userID)+":conns", s.ttl).Err()
	return s.set(ctx, userID, "online")
}

// SetOffline drops one connection; the user goes offline when the last
// one is gone.
func (s *Store) SetOffline(ctx context.Context, userID string) error {
	if s == nil {
		return nil
	}
	left, err := s.client.Decr(ctx, s.key(userID)+":conns").Result()
	if err != nil {
		return err
	}
	if left > 0 {
		return nil
	}
	_ = s.client.Del(ctx, s.key(userID)+":conns").Err()
	return s.set(ctx, userID, "offline")
}

// Get returns "online" or "offline"; missing keys read as offline.
func (s *Store) Get(ctx context.Context, userID string) (string, error) {
	if s == nil {
		return "offline", nil
	}
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return "offline", nil
		}
		return "", err
	}
	var st status
	if err := json.Unmarshal(b, &st); err != nil {
		return "", err
	}
	return st.Status, nil
}

func (s *Store) set(ctx context.Context, userID, state string) error {
	b, _ := json.Marshal(status{Status: state, LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.key(userID), b, s.ttl).Err()
}
