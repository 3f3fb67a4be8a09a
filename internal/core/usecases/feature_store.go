package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/ports"
	"github.com/samirrijal/srimap/internal/pkg/metrics"
	"github.com/samirrijal/srimap/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/srimap/internal/core/usecases")

// FeatureStore lazily loads and caches the dataset collections.
// Entries are never evicted; ClearCache drops all of them. A load that was
// in flight when ClearCache ran is returned to its callers but not cached.
type FeatureStore struct {
	source ports.DatasetSource
	files  map[domain.DatasetID]string

	mu    sync.RWMutex
	cache map[domain.DatasetID]*loadedDataset

	group      singleflight.Group
	generation atomic.Uint64
}

// NewFeatureStore creates a FeatureStore. A nil files map uses the default
// resource names.
func NewFeatureStore(source ports.DatasetSource, files map[domain.DatasetID]string) *FeatureStore {
	bound := domain.DefaultFiles()
	for id, f := range files {
		if id.Known() && f != "" {
			bound[id] = f
		}
	}
	return &FeatureStore{
		source: source,
		files:  bound,
		cache:  make(map[domain.DatasetID]*loadedDataset),
	}
}

// loadedDataset is a parsed collection and the digest of the bytes it was
// parsed from.
type loadedDataset struct {
	fc     *geojson.FeatureCollection
	digest string
}

// File returns the resource name bound to a dataset.
func (s *FeatureStore) File(id domain.DatasetID) (string, error) {
	f, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownDataset, id)
	}
	return f, nil
}

// Load returns the collection for id, fetching and parsing it on first use.
func (s *FeatureStore) Load(ctx context.Context, id domain.DatasetID) (*geojson.FeatureCollection, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.fc, nil
}

func (s *FeatureStore) load(ctx context.Context, id domain.DatasetID) (*loadedDataset, error) {
	file, err := s.File(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	d, ok := s.cache[id]
	gen := s.generation.Load()
	s.mu.RUnlock()
	if ok {
		metrics.CacheHits.WithLabelValues("dataset").Inc()
		return d, nil
	}
	metrics.CacheMisses.WithLabelValues("dataset").Inc()

	// Keyed by generation so a load started after ClearCache never joins
	// one started before it.
	key := fmt.Sprintf("%s@%d", id, gen)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// another caller may have filled the cache while we waited
		s.mu.RLock()
		cached, ok := s.cache[id]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		d, err := s.fetch(ctx, id, file)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.generation.Load() == gen {
			s.cache[id] = d
		}
		s.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*loadedDataset), nil
}

func (s *FeatureStore) fetch(ctx context.Context, id domain.DatasetID, file string) (*loadedDataset, error) {
	ctx, span := tracer.Start(ctx, "FeatureStore.fetch", trace.WithAttributes(
		telemetry.AttrDataset.String(string(id)),
		telemetry.AttrFile.String(file),
	))
	defer span.End()

	start := time.Now()
	d, err := s.fetchAndParse(ctx, file)
	metrics.DatasetLoadDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DatasetLoads.WithLabelValues(string(id), outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("dataset load failed", "dataset", id, "file", file, "error", err)
		return nil, err
	}

	metrics.DatasetLoads.WithLabelValues(string(id), "ok").Inc()
	span.SetAttributes(telemetry.AttrFeatures.Int(len(d.fc.Features)))
	slog.Info("dataset loaded", "dataset", id, "file", file, "features", len(d.fc.Features), "digest", d.digest)
	return d, nil
}

func (s *FeatureStore) fetchAndParse(ctx context.Context, file string) (*loadedDataset, error) {
	data, err := s.source.Fetch(ctx, file)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNetwork) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNetwork, file, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, file, err)
	}
	sum := sha256.Sum256(data)
	return &loadedDataset{fc: fc, digest: hex.EncodeToString(sum[:8])}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrParse):
		return "parse_error"
	default:
		return "network_error"
	}
}

// LoadAll loads every dataset concurrently. The returned map holds one entry
// per dataset that failed; a nil map means all loads succeeded.
func (s *FeatureStore) LoadAll(ctx context.Context) map[domain.DatasetID]error {
	var (
		mu     sync.Mutex
		failed map[domain.DatasetID]error
	)

	var g errgroup.Group
	for _, id := range domain.Datasets {
		g.Go(func() error {
			if _, err := s.Load(ctx, id); err != nil {
				mu.Lock()
				if failed == nil {
					failed = make(map[domain.DatasetID]error)
				}
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return failed
}

// Cached reports whether id is currently held in memory.
func (s *FeatureStore) Cached(id domain.DatasetID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[id]
	return ok
}

// ClearCache drops every cached collection.
func (s *FeatureStore) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[domain.DatasetID]*loadedDataset)
	s.generation.Add(1)
	s.mu.Unlock()
	slog.Info("dataset cache cleared")
}

// Generation increases on every ClearCache. It is local to this process.
func (s *FeatureStore) Generation() uint64 {
	return s.generation.Load()
}
