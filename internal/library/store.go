package library

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/metrics"
	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

type database interface {
	GetActiveEntries(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error)
	GetEntriesByCategory(ctx context.Context, kind models.LibraryKind, category string) ([]models.LibraryEntry, error)
}

type cache interface {
	GetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind) ([]models.LibraryEntry, bool, error)
	SetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind, entries []models.LibraryEntry) error
}

// Store is the engine's read-only view of the four curated libraries. Tenant
// scope is always an explicit argument; there is no ambient current-tenant
// state. The redis cache is best-effort: any cache failure falls through to
// sqlite so freshness degrades instead of requests failing.
type Store struct {
	db    database
	cache cache
}

func NewStore(db database, cache cache) *Store {
	return &Store{db: db, cache: cache}
}

func (s *Store) FetchActive(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown library kind %q", kind)
	}

	if s.cache != nil {
		entries, hit, err := s.cache.GetLibrary(ctx, tenantID, kind)
		if err != nil {
			logger.Warn("Library cache read failed", zap.String("kind", string(kind)), zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("library").Inc()
			return entries, nil
		}
		metrics.CacheMisses.WithLabelValues("library").Inc()
	}

	entries, err := s.db.GetActiveEntries(ctx, kind, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s library: %w", kind, err)
	}

	if s.cache != nil {
		if err := s.cache.SetLibrary(ctx, tenantID, kind, entries); err != nil {
			logger.Warn("Library cache write failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	return entries, nil
}

func (s *Store) FetchByCategory(ctx context.Context, kind models.LibraryKind, category string) ([]models.LibraryEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown library kind %q", kind)
	}

	entries, err := s.db.GetEntriesByCategory(ctx, kind, category)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s library by category: %w", kind, err)
	}

	return entries, nil
}
