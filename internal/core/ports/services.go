package ports

import (
	"context"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishChatTurn(ctx context.Context, turn *domain.ChatTurn) error
	PublishCacheCleared(ctx context.Context, origin string) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCacheCleared(ctx context.Context, handler func(ctx context.Context, origin string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// AnswerService generates free text for a prompt. Failures are returned
// as *domain.RemoteServiceError.
type AnswerService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
