package usecases_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// --- Mock DatasetSource ---

type mockSource struct {
	mu      sync.Mutex
	calls   map[string]int
	fetchFn func(ctx context.Context, resource string) ([]byte, error)
}

func (m *mockSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[resource]++
	m.mu.Unlock()

	if m.fetchFn != nil {
		return m.fetchFn(ctx, resource)
	}
	if data, ok := testFixtures[resource]; ok {
		return []byte(data), nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, resource)
}

func (m *mockSource) count(resource string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[resource]
}

func (m *mockSource) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

var testFixtures = map[string]string{
	"Disaster_all.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[79.8612,6.9271]},"properties":{"name":"Kelani flood zone","natural":"flood","is_in":"Colombo"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[80.6337,7.2906]},"properties":{"natural":"landslide","is_in":"Kandy"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[80.2210,6.0535]},"properties":{"natural":"flood","is_in":"Galle"}},
		{"type":"Feature","geometry":{"type":"MultiPoint","coordinates":[[80.55,5.95]]},"properties":{"natural":"tsunami","is_in":"Matara"}}
	]}`,
	"restaurants_all.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[79.8530,6.9320]},"properties":{"name":"Ministry of Crab","cuisine":"seafood","is_in":"Colombo"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[79.8600,6.9200]},"properties":{"name":"","amenity":"cafe"}}
	]}`,
	"ralway_All.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[79.8500,6.9344]},"properties":{"name":"Colombo Fort","railway":"station","type":"Station"}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[79.85,6.93],[80.63,7.29]]},"properties":{"name":"Main Line","type":"rail"}}
	]}`,
	"HW_all.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[79.86,6.90],[80.0,6.95]]},"properties":{"highway":"trunk","lanes":"2"}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[79.90,6.91],[80.1,6.99]]},"properties":{"highway":"primary"}}
	]}`,
	"Oya_all.geojson": `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[79.87,6.97],[80.2,7.0]]},"properties":{"name":"Kelani Ganga","waterway":"river"}}
	]}`,
}

// --- Mock AnswerService ---

type mockRemote struct {
	mu         sync.Mutex
	calls      int
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockRemote) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "remote answer", nil
}

func (m *mockRemote) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock EventPublisher ---

type mockEvents struct {
	mu      sync.Mutex
	turns   []*domain.ChatTurn
	cleared []string
}

func (m *mockEvents) PublishChatTurn(ctx context.Context, turn *domain.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return nil
}

func (m *mockEvents) PublishCacheCleared(ctx context.Context, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, origin)
	return nil
}

// --- Mock ChatLogRepository ---

type mockHistory struct {
	mu              sync.Mutex
	inserted        []domain.ChatTurn
	listBySessionFn func(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error)
}

func (m *mockHistory) Insert(ctx context.Context, turn *domain.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *turn)
	return nil
}

func (m *mockHistory) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	if m.listBySessionFn != nil {
		return m.listBySessionFn(ctx, sessionID, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
