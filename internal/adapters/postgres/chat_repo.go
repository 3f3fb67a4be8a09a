package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// ChatRepo implements ports.ChatLogRepository.
type ChatRepo struct {
	db *DB
}

func NewChatRepo(db *DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Insert(ctx context.Context, t *domain.ChatTurn) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO chat_turns (id, session_id, question, answer, route, category, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.SessionID, t.Question, t.Answer, string(t.Route), string(t.Category), t.LatencyMs, t.CreatedAt)
	return err
}

// ListBySession returns the latest limit turns of a session, oldest first.
func (r *ChatRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, session_id, question, answer, route, COALESCE(category, ''), latency_ms, created_at
		FROM (
			SELECT * FROM chat_turns
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) t
		ORDER BY created_at
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ChatTurn, error) {
		var t domain.ChatTurn
		var route, categ string
		err := row.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &route, &categ, &t.LatencyMs, &t.CreatedAt)
		t.Route = domain.Route(route)
		t.Category = domain.Category(categ)
		return t, err
	})
}
