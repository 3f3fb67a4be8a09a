package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/ports"
	"github.com/samirrijal/srimap/internal/pkg/geospatial"
	"github.com/samirrijal/srimap/internal/pkg/metrics"
	"github.com/samirrijal/srimap/internal/pkg/telemetry"
)

// NearbyService ranks dataset features by distance from a point.
type NearbyService struct {
	store    *FeatureStore
	cache    ports.CacheService
	mode     geospatial.CentroidMode
	cacheTTL int
}

// NewNearbyService creates a NearbyService. cache may be nil.
func NewNearbyService(store *FeatureStore, cache ports.CacheService, mode geospatial.CentroidMode, cacheTTLSeconds int) *NearbyService {
	if mode == "" {
		mode = geospatial.CentroidFirst
	}
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 300
	}
	return &NearbyService{store: store, cache: cache, mode: mode, cacheTTL: cacheTTLSeconds}
}

// FindNearby returns the features of a dataset whose representative point
// lies within radiusKm of (lat, lon), nearest first. Features without a
// usable geometry are skipped. An empty slice is not an error.
func (s *NearbyService) FindNearby(ctx context.Context, lat, lon, radiusKm float64, id domain.DatasetID) ([]domain.NearbyResult, error) {
	if !id.Known() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDataset, id)
	}
	if !(domain.GeoPoint{Lat: lat, Lon: lon}).Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidQuery)
	}
	if !(radiusKm > 0) || math.IsInf(radiusKm, 0) {
		return nil, fmt.Errorf("%w: radius must be positive", domain.ErrInvalidQuery)
	}

	ctx, span := tracer.Start(ctx, "NearbyService.FindNearby", trace.WithAttributes(
		telemetry.AttrDataset.String(string(id)),
		telemetry.AttrRadiusKm.Float64(radiusKm),
	))
	defer span.End()

	d, err := s.store.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// The cache is shared between instances, so entries are keyed by the
	// content they were computed from rather than by local state.
	cacheKey := fmt.Sprintf("nearby:%s:%s:%s:%.5f:%.5f:%.3f", d.digest, s.mode, id, lat, lon, radiusKm)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var results []domain.NearbyResult
			if err := json.Unmarshal(data, &results); err == nil {
				metrics.CacheHits.WithLabelValues("nearby").Inc()
				return results, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
	}

	results := make([]domain.NearbyResult, 0)
	for _, f := range d.fc.Features {
		p, ok := geospatial.RepresentativePoint(f.Geometry, s.mode)
		if !ok {
			continue
		}
		d := geospatial.DistanceKm(lat, lon, p.Lat, p.Lon)
		if d > radiusKm {
			continue
		}
		results = append(results, domain.NearbyResult{
			Name:       propText(f.Properties, "Unnamed", "name"),
			Type:       propText(f.Properties, "Unknown", "natural", "water", "type"),
			Location:   propText(f.Properties, "Unknown", "is_in"),
			DistanceKm: roundTo(d, 2),
			Properties: maps.Clone(f.Properties),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	span.SetAttributes(telemetry.AttrResults.Int(len(results)))

	if s.cache != nil {
		if data, err := json.Marshal(results); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}

	return results, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
