package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/srimap/internal/core/domain"
)

const (
	chatStream          = "SRIMAP_CHAT"
	chatSubjectPrefix   = "srimap.chat.turn."
	cacheClearedSubject = "srimap.cache.cleared"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      chatStream,
			Subjects:  []string{"srimap.chat.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishChatTurn appends a completed turn to the chat audit stream.
func (p *Publisher) PublishChatTurn(ctx context.Context, turn *domain.ChatTurn) error {
	data, err := encodeChatTurn(turn)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(chatSubjectPrefix+string(turn.Route), data,
		nats.Context(ctx),
		nats.MsgId(turn.ID),
	)
	return err
}

// PublishCacheCleared tells every API instance to drop its dataset cache.
// It is a plain core-NATS broadcast; instances that are down simply reload
// on start.
func (p *Publisher) PublishCacheCleared(ctx context.Context, origin string) error {
	data, err := encodeCacheCleared(origin, time.Now())
	if err != nil {
		return err
	}
	return p.conn.Publish(cacheClearedSubject, data)
}

// Ping reports whether the connection is usable.
func (p *Publisher) Ping() error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect opens a plain NATS connection with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("srimap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
