package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/raumania/assistant/internal/domain"
	"github.com/raumania/assistant/internal/observability"
)

// IndexBuilder builds the retrieval index for a catalog
type IndexBuilder func(ctx context.Context, catalog *domain.Catalog) (*VectorIndex, error)

// Snapshot is an immutable catalog for one source version plus its lazily built index
type Snapshot struct {
	Catalog  *domain.Catalog
	LoadedAt time.Time

	mu    sync.Mutex
	index *VectorIndex
}

// NewSnapshot wraps a loaded catalog
func NewSnapshot(catalog *domain.Catalog) *Snapshot {
	return &Snapshot{Catalog: catalog, LoadedAt: time.Now()}
}

// Index returns the snapshot's index, building it on first use.
// A failed build is not cached; the next caller retries.
func (s *Snapshot) Index(ctx context.Context, build IndexBuilder) (*VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}

	idx, err := build(ctx, s.Catalog)
	if err != nil {
		return nil, err
	}
	s.index = idx
	return idx, nil
}

// CatalogStore holds the current catalog snapshot process-wide and reloads it when
// the source version changes or after Invalidate
type CatalogStore struct {
	source domain.CatalogSource
	logger zerolog.Logger

	mu      sync.RWMutex
	current *Snapshot
	stale   bool
}

// NewCatalogStore creates a store over a catalog source
func NewCatalogStore(source domain.CatalogSource, logger zerolog.Logger) *CatalogStore {
	return &CatalogStore{
		source: source,
		logger: observability.Component(logger, "catalog"),
	}
}

// Snapshot returns the snapshot for the source's current version, loading it if needed
func (s *CatalogStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	version, err := s.source.Version(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cur, stale := s.current, s.stale
	s.mu.RUnlock()
	if cur != nil && !stale && cur.Catalog.Version == version {
		return cur, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have reloaded while we waited for the lock
	if s.current != nil && !s.stale && s.current.Catalog.Version == version {
		return s.current, nil
	}

	start := time.Now()
	catalog, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("catalog load failed")
		return nil, err
	}

	snap := NewSnapshot(catalog)
	s.current = snap
	s.stale = false

	s.logger.Info().
		Str("version", catalog.Version).
		Int("products", len(catalog.Products)).
		Int("brands", len(catalog.Brands)).
		Int("entries", len(catalog.Entries)).
		Dur("took", time.Since(start)).
		Msg("catalog loaded")

	return snap, nil
}

// Invalidate marks the current snapshot stale so the next request reloads it
func (s *CatalogStore) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.logger.Info().Msg("catalog invalidated")
}

// Reload invalidates the snapshot and loads a fresh one
func (s *CatalogStore) Reload(ctx context.Context) (*Snapshot, error) {
	s.Invalidate()
	return s.Snapshot(ctx)
}
