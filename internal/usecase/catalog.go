package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

// CatalogLoader materializes the process-wide permission catalog at startup.
// The catalog is read-only for the life of the process; Invalidate forces
// the next boot (or an explicit reload call) to reseed.
type CatalogLoader struct {
	cache  port.CatalogCache
	logger *zap.Logger
}

// NewCatalogLoader constructs a CatalogLoader. A nil cache degrades to
// seed-only loading.
func NewCatalogLoader(cache port.CatalogCache, logger *zap.Logger) *CatalogLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogLoader{cache: cache, logger: logger}
}

// Load returns the shared catalog snapshot, seeding the cache on first use.
func (l *CatalogLoader) Load(ctx context.Context) (domain.PermissionCatalog, error) {
	seed := domain.SeedPermissions()

	if l.cache == nil {
		return domain.NewPermissionCatalog(seed), nil
	}

	cached, err := l.cache.Snapshot(ctx)
	if err == nil {
		l.logger.Info("permission catalog loaded from cache", zap.Int("permissions", len(cached)))
		return domain.NewPermissionCatalog(cached), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.PermissionCatalog{}, fmt.Errorf("load catalog snapshot: %w", err)
	}

	if err := l.cache.Store(ctx, seed); err != nil {
		// Seeding the cache is an optimization; the local seed still serves.
		l.logger.Warn("store catalog snapshot", zap.Error(err))
	}

	l.logger.Info("permission catalog seeded", zap.Int("permissions", len(seed)))
	return domain.NewPermissionCatalog(seed), nil
}

// Invalidate drops the shared snapshot.
func (l *CatalogLoader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx)
}
