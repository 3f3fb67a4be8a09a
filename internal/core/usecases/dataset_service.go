package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/ports"
)

const (
	matchLimit       = 20
	searchHitLimit   = 5
	statsSampleSize  = 3
	summaryLocations = 10
)

// DatasetService answers catalogue questions about the loaded datasets.
type DatasetService struct {
	store  *FeatureStore
	events ports.EventPublisher
	origin string
}

// NewDatasetService creates a DatasetService. events may be nil; origin
// identifies this instance in cache-clear broadcasts.
func NewDatasetService(store *FeatureStore, events ports.EventPublisher, origin string) *DatasetService {
	return &DatasetService{store: store, events: events, origin: origin}
}

// DatasetInfo describes a dataset binding.
type DatasetInfo struct {
	ID     domain.DatasetID `json:"id"`
	File   string           `json:"file"`
	Cached bool             `json:"cached"`
}

// List returns every dataset with its backing file.
func (s *DatasetService) List() []DatasetInfo {
	out := make([]DatasetInfo, 0, len(domain.Datasets))
	for _, id := range domain.Datasets {
		f, _ := s.store.File(id)
		out = append(out, DatasetInfo{ID: id, File: f, Cached: s.store.Cached(id)})
	}
	return out
}

// Collection returns the raw collection of a dataset.
func (s *DatasetService) Collection(ctx context.Context, id domain.DatasetID) (*geojson.FeatureCollection, error) {
	return s.store.Load(ctx, id)
}

// Stats describes the geometry and property makeup of a dataset.
func (s *DatasetService) Stats(ctx context.Context, id domain.DatasetID) (*domain.DatasetStats, error) {
	fc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	file, _ := s.store.File(id)

	stats := &domain.DatasetStats{
		Dataset:       id,
		File:          file,
		TotalFeatures: len(fc.Features),
		GeometryTypes: []string{},
		Properties:    make(map[string]domain.PropertySummary),
		Sample:        []map[string]interface{}{},
	}

	seen := make(map[string]bool)
	for i, f := range fc.Features {
		if f.Geometry != nil {
			t := f.Geometry.GeoJSONType()
			if !seen[t] {
				seen[t] = true
				stats.GeometryTypes = append(stats.GeometryTypes, t)
			}
		}
		for k, v := range f.Properties {
			ps, ok := stats.Properties[k]
			if !ok {
				ps = domain.PropertySummary{Name: k, SampleValue: v}
			}
			ps.Count++
			stats.Properties[k] = ps
		}
		if i < statsSampleSize {
			stats.Sample = append(stats.Sample, featureJSON(f))
		}
	}

	return stats, nil
}

// summaryTypeKeys lists the properties that hold a feature's kind, per dataset.
var summaryTypeKeys = map[domain.DatasetID][]string{
	domain.DatasetDisasters: {"natural", "water"},
	domain.DatasetTrains:    {"type"},
	domain.DatasetHighways:  {"highway"},
	domain.DatasetRivers:    {"waterway", "natural"},
}

// Summary returns the headline facts for a dataset.
func (s *DatasetService) Summary(ctx context.Context, id domain.DatasetID) (*domain.DatasetSummary, error) {
	fc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	file, _ := s.store.File(id)

	sum := &domain.DatasetSummary{Dataset: id, File: file, TotalFeatures: len(fc.Features)}

	if keys, ok := summaryTypeKeys[id]; ok {
		sum.Types = uniqueValues(fc, keys, 0)
	}
	if id == domain.DatasetDisasters || id == domain.DatasetRestaurants {
		sum.Locations = uniqueValues(fc, []string{"is_in"}, summaryLocations)
	}
	if id == domain.DatasetTrains {
		n := countStations(fc)
		sum.Stations = &n
	}

	return sum, nil
}

// uniqueValues collects distinct non-empty values of keys in first-seen
// order. limit <= 0 means no limit.
func uniqueValues(fc *geojson.FeatureCollection, keys []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range fc.Features {
		for _, k := range keys {
			v, ok := truthy(f.Properties[k])
			if !ok || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func countStations(fc *geojson.FeatureCollection) int {
	n := 0
	for _, f := range fc.Features {
		if t, _ := f.Properties["type"].(string); t == "Station" {
			n++
		}
	}
	return n
}

// SearchByLocation returns features whose is_in label contains keyword.
func (s *DatasetService) SearchByLocation(ctx context.Context, id domain.DatasetID, keyword string) (*domain.FeatureMatch, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: location keyword must not be empty", domain.ErrInvalidQuery)
	}
	return s.match(ctx, id, fmt.Sprintf("location contains %q", keyword), func(f *geojson.Feature) bool {
		loc, _ := f.Properties["is_in"].(string)
		return loc != "" && containsFold(loc, keyword)
	})
}

// QueryByProperty returns features whose property equals value.
func (s *DatasetService) QueryByProperty(ctx context.Context, id domain.DatasetID, property, value string) (*domain.FeatureMatch, error) {
	if property == "" {
		return nil, fmt.Errorf("%w: property must not be empty", domain.ErrInvalidQuery)
	}
	return s.match(ctx, id, fmt.Sprintf("%s = %s", property, value), func(f *geojson.Feature) bool {
		v, ok := f.Properties[property]
		if !ok || v == nil {
			return false
		}
		return fmt.Sprint(v) == value
	})
}

func (s *DatasetService) match(ctx context.Context, id domain.DatasetID, query string, keep func(*geojson.Feature) bool) (*domain.FeatureMatch, error) {
	fc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	file, _ := s.store.File(id)

	m := &domain.FeatureMatch{Dataset: id, File: file, Query: query, Features: []map[string]interface{}{}}
	for _, f := range fc.Features {
		if !keep(f) {
			continue
		}
		m.Matches++
		if len(m.Features) < matchLimit {
			m.Features = append(m.Features, featureJSON(f))
		}
	}
	return m, nil
}

// SearchAll looks for keyword in every property value of every dataset.
// Datasets that cannot be loaded are reported in Errors and skipped.
func (s *DatasetService) SearchAll(ctx context.Context, keyword string) (*domain.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword must not be empty", domain.ErrInvalidQuery)
	}
	needle := strings.ToLower(keyword)

	res := &domain.SearchResult{Keyword: keyword, Results: make(map[domain.DatasetID]domain.DatasetHits)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range domain.Datasets {
		g.Go(func() error {
			fc, err := s.store.Load(gctx, id)
			if err != nil {
				slog.Warn("search skipped dataset", "dataset", id, "error", err)
				mu.Lock()
				if res.Errors == nil {
					res.Errors = make(map[domain.DatasetID]string)
				}
				res.Errors[id] = err.Error()
				mu.Unlock()
				return nil
			}

			hits := searchCollection(fc, needle)
			if hits.Total > 0 {
				mu.Lock()
				res.Results[id] = hits
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}

func searchCollection(fc *geojson.FeatureCollection, needle string) domain.DatasetHits {
	hits := domain.DatasetHits{Matches: []domain.SearchHit{}}
	for _, f := range fc.Features {
		// sorted keys keep the hit order stable between runs
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := f.Properties[k]
			s, ok := truthy(v)
			if !ok || !strings.Contains(strings.ToLower(s), needle) {
				continue
			}
			hits.Total++
			if len(hits.Matches) < searchHitLimit {
				name, _ := f.Properties["name"].(string)
				loc, _ := f.Properties["is_in"].(string)
				hits.Matches = append(hits.Matches, domain.SearchHit{Name: name, Location: loc, Match: v})
			}
		}
	}
	return hits
}

// ClearCache empties the feature cache and tells other instances to do the same.
func (s *DatasetService) ClearCache(ctx context.Context) {
	s.store.ClearCache()
	if s.events == nil {
		return
	}
	if err := s.events.PublishCacheCleared(ctx, s.origin); err != nil {
		slog.Warn("cache clear broadcast failed", "error", err)
	}
}

// HandleRemoteClear is the subscriber callback for cache-clear broadcasts.
func (s *DatasetService) HandleRemoteClear(ctx context.Context, origin string) error {
	if origin == s.origin {
		return nil
	}
	s.store.ClearCache()
	return nil
}

// Features returns one page of a dataset's features and the total count.
func (s *DatasetService) Features(ctx context.Context, id domain.DatasetID, offset, limit int) ([]map[string]interface{}, int, error) {
	fc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	total := len(fc.Features)
	page := make([]map[string]interface{}, 0, limit)
	for i := offset; i < total && i < offset+limit; i++ {
		page = append(page, featureJSON(fc.Features[i]))
	}
	return page, total, nil
}

// ByFile resolves a backing file name to its dataset.
func (s *DatasetService) ByFile(file string) (domain.DatasetID, bool) {
	for _, id := range domain.Datasets {
		if f, _ := s.store.File(id); f != "" && f == file {
			return id, true
		}
	}
	return "", false
}
