package natsadapter

import (
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/srimap/internal/core/domain"
)

func TestCacheClearedRoundTrip(t *testing.T) {
	data, err := encodeCacheCleared("api-1", time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	origin, err := decodeCacheCleared(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if origin != "api-1" {
		t.Errorf("expected origin api-1, got %q", origin)
	}
}

func TestDecodeCacheCleared_Garbage(t *testing.T) {
	if _, err := decodeCacheCleared([]byte{0xff, 0xff}); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestEncodeChatTurn(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.FixedZone("IST", 19800))
	data, err := encodeChatTurn(&domain.ChatTurn{
		ID:        "t1",
		SessionID: "s1",
		Question:  "trains near me",
		Answer:    "Colombo Fort",
		Route:     domain.RouteLocal,
		Category:  domain.CategoryRailway,
		LatencyMs: 12,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	f := s.GetFields()
	if f["route"].GetStringValue() != "local" {
		t.Errorf("unexpected route %v", f["route"])
	}
	if f["latency_ms"].GetNumberValue() != 12 {
		t.Errorf("unexpected latency %v", f["latency_ms"])
	}
	if f["created_at"].GetStringValue() != "2026-03-01T03:00:00Z" {
		t.Errorf("expected UTC timestamp, got %v", f["created_at"])
	}
}
