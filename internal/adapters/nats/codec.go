package natsadapter

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// Event payloads are protobuf-encoded google.protobuf.Struct messages.

func encodeChatTurn(t *domain.ChatTurn) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"id":         t.ID,
		"session_id": t.SessionID,
		"question":   t.Question,
		"answer":     t.Answer,
		"route":      string(t.Route),
		"category":   string(t.Category),
		"latency_ms": float64(t.LatencyMs),
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat turn: %w", err)
	}
	return proto.Marshal(s)
}

func encodeCacheCleared(origin string, at time.Time) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"origin": origin,
		"at":     at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeCacheCleared(data []byte) (string, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("decode cache cleared: %w", err)
	}
	return s.GetFields()["origin"].GetStringValue(), nil
}
