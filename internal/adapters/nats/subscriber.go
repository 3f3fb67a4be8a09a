package natsadapter

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/srimap/internal/core/ports"
)

var _ ports.EventSubscriber = (*Subscriber)(nil)

// Subscriber implements ports.EventSubscriber using core NATS.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeCacheCleared delivers every cache-clear broadcast to handler.
func (s *Subscriber) SubscribeCacheCleared(ctx context.Context, handler func(ctx context.Context, origin string) error) error {
	sub, err := s.conn.Subscribe(cacheClearedSubject, func(msg *nats.Msg) {
		origin, err := decodeCacheCleared(msg.Data)
		if err != nil {
			slog.Warn("bad cache-cleared event", "error", err)
			return
		}
		if err := handler(ctx, origin); err != nil {
			slog.Warn("cache-cleared handler failed", "origin", origin, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
