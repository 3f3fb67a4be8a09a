package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
)

func newNearby(src *mockSource) *usecases.NearbyService {
	return usecases.NewNearbyService(usecases.NewFeatureStore(src, nil), nil, geospatial.CentroidFirst, 0)
}

func TestFindNearby_SortedWithinRadius(t *testing.T) {
	svc := newNearby(&mockSource{})

	results, err := svc.FindNearby(context.Background(), 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "Unnamed" || results[1].Name != "Ministry of Crab" {
		t.Errorf("unexpected order: %s, %s", results[0].Name, results[1].Name)
	}
	if results[0].DistanceKm != 0.8 || results[1].DistanceKm != 1.06 {
		t.Errorf("expected distances rounded to 2 places, got %v and %v", results[0].DistanceKm, results[1].DistanceKm)
	}
	if results[1].Location != "Colombo" || results[0].Location != "Unknown" {
		t.Errorf("unexpected locations %q, %q", results[0].Location, results[1].Location)
	}
}

func TestFindNearby_SkipsUnsupportedGeometry(t *testing.T) {
	svc := newNearby(&mockSource{})

	// large enough to cover the whole island
	results, err := svc.FindNearby(context.Background(), 7.0, 80.5, 500, domain.DatasetDisasters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 point features, got %d", len(results))
	}
	for _, r := range results {
		if r.Location == "Matara" {
			t.Error("the MultiPoint feature must be skipped")
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].DistanceKm < results[i-1].DistanceKm {
			t.Errorf("results not sorted: %v", results)
		}
	}
}

func TestFindNearby_LineUsesFirstCoordinate(t *testing.T) {
	svc := newNearby(&mockSource{})

	results, err := svc.FindNearby(context.Background(), 6.90, 79.86, 1, domain.DatasetHighways)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].DistanceKm != 0 {
		t.Fatalf("expected the trunk road at distance 0, got %+v", results)
	}
	if results[0].Type != "Unknown" {
		t.Errorf("highways have no natural/water/type key, got %q", results[0].Type)
	}
}

func TestFindNearby_CentroidMode(t *testing.T) {
	store := usecases.NewFeatureStore(&mockSource{}, nil)
	svc := usecases.NewNearbyService(store, nil, geospatial.CentroidPlanar, 0)

	// the trunk road starts here but its midpoint is about 8 km away
	results, err := svc.FindNearby(context.Background(), 6.90, 79.86, 1, domain.DatasetHighways)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results in centroid mode, got %+v", results)
	}
}

func TestFindNearby_EmptyResultIsNotNil(t *testing.T) {
	svc := newNearby(&mockSource{})

	results, err := svc.FindNearby(context.Background(), 9.6615, 80.0255, 1, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", results)
	}
}

func TestFindNearby_InvalidQuery(t *testing.T) {
	src := &mockSource{}
	svc := newNearby(src)
	ctx := context.Background()

	tests := []struct {
		name             string
		lat, lon, radius float64
	}{
		{"latitude too high", 91, 80, 5},
		{"longitude too low", 7, -181, 5},
		{"nan latitude", math.NaN(), 80, 5},
		{"zero radius", 7, 80, 0},
		{"negative radius", 7, 80, -1},
		{"infinite radius", 7, 80, math.Inf(1)},
		{"nan radius", 7, 80, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FindNearby(ctx, tt.lat, tt.lon, tt.radius, domain.DatasetRivers)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
	if src.total() != 0 {
		t.Errorf("invalid queries must not load data, got %d fetches", src.total())
	}
}

func TestFindNearby_UnknownDataset(t *testing.T) {
	svc := newNearby(&mockSource{})
	_, err := svc.FindNearby(context.Background(), 7, 80, 5, domain.DatasetID("lava"))
	if !errors.Is(err, domain.ErrUnknownDataset) {
		t.Errorf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestFindNearby_ReadThroughCache(t *testing.T) {
	src := &mockSource{}
	cache := &mockCache{}
	store := usecases.NewFeatureStore(src, nil)
	svc := usecases.NewNearbyService(store, cache, geospatial.CentroidFirst, 60)
	ctx := context.Background()

	first, err := svc.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != len(first) || second[0].Name != first[0].Name {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}

	// unchanged content after a clear reuses the cached entry
	store.ClearCache()
	if _, err := svc.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("expected a cache hit for unchanged content, got %d writes", cache.sets)
	}
	if n := src.count("restaurants_all.geojson"); n != 2 {
		t.Errorf("expected a refetch after clear, got %d fetches", n)
	}
}

func TestFindNearby_SharedCacheFollowsContent(t *testing.T) {
	const updated = `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[79.8612,6.9275]},"properties":{"name":"Galle Face Hotel","is_in":"Colombo"}}
	]}`
	cache := &mockCache{}
	ctx := context.Background()
	newInstance := func(src *mockSource) *usecases.NearbyService {
		return usecases.NewNearbyService(usecases.NewFeatureStore(src, nil), cache, geospatial.CentroidFirst, 60)
	}

	a := newInstance(&mockSource{})
	before, err := a.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a second instance over the same files shares the entry
	b := newInstance(&mockSource{})
	same, err := b.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.sets != 1 || len(same) != len(before) {
		t.Errorf("expected a shared hit, got %d writes and %d results", cache.sets, len(same))
	}

	// an instance started after the files changed must not see old entries
	c := newInstance(&mockSource{
		fetchFn: func(ctx context.Context, resource string) ([]byte, error) {
			return []byte(updated), nil
		},
	})
	after, err := c.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.sets != 2 {
		t.Errorf("expected a miss for new content, got %d writes", cache.sets)
	}
	if len(after) != 1 || after[0].Name != "Galle Face Hotel" {
		t.Errorf("expected results from the new files, got %+v", after)
	}
}

func TestFindNearby_PropertiesAreCopied(t *testing.T) {
	store := usecases.NewFeatureStore(&mockSource{}, nil)
	svc := usecases.NewNearbyService(store, nil, geospatial.CentroidFirst, 0)
	ctx := context.Background()

	results, err := svc.FindNearby(ctx, 6.9271, 79.8612, 5, domain.DatasetRestaurants)
	if err != nil || len(results) == 0 {
		t.Fatalf("expected results, got %v (%v)", results, err)
	}
	results[0].Properties["name"] = "changed"

	fc, err := store.Load(ctx, domain.DatasetRestaurants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range fc.Features {
		if f.Properties["name"] == "changed" {
			t.Fatal("mutating a result changed the cached collection")
		}
	}
}
