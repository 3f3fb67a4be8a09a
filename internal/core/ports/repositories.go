package ports

import (
	"context"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// DatasetSource reads the raw bytes of a dataset resource by file name.
// Implementations wrap domain.ErrNotFound for missing resources and
// domain.ErrNetwork for any other read failure.
type DatasetSource interface {
	Fetch(ctx context.Context, resource string) ([]byte, error)
}

// ChatLogRepository persists completed chat turns.
type ChatLogRepository interface {
	Insert(ctx context.Context, turn *domain.ChatTurn) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error)
}
