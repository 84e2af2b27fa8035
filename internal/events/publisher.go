// Package events publishes message lifecycle events to kafka for
// downstream consumers (notification and analytics pipelines). The
// live fanout never depends on it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tatarskisamurai/pwa-chat/internal/models"
)

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns nil when no brokers are configured; a nil
// Publisher is a no-op.
func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Publisher{writer: w}
}

type messageEvent struct {
	Event   string          `json:"event"`
	Message *models.Message `json:"message"`
	At      time.Time       `json:"at"`
}

// MessageEvent writes one lifecycle event, keyed by chat id so events
// of one chat stay in partition order.
func (p *Publisher) MessageEvent(ctx context.Context, kind string, msg *models.Message) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(messageEvent{Event: kind, Message: msg, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChatID),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
