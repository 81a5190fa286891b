package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/repository"
)

func TestCatalogLoadWithoutCacheUsesSeed(t *testing.T) {
	loader := NewCatalogLoader(nil, nil)

	catalog, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if catalog.Len() != len(domain.SeedPermissions()) {
		t.Fatalf("expected the full seed, got %d permissions", catalog.Len())
	}
}

func TestCatalogLoadPrefersCachedSnapshot(t *testing.T) {
	cache := &catalogCacheMock{snapshot: []domain.Permission{
		{Name: "read:loads", Description: "View loads", Category: "loads"},
	}}
	loader := NewCatalogLoader(cache, nil)

	catalog, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("expected the cached snapshot, got %d permissions", catalog.Len())
	}
	if len(cache.stored) != 0 {
		t.Fatal("a cache hit must not reseed")
	}
}

func TestCatalogLoadSeedsOnCacheMiss(t *testing.T) {
	cache := &catalogCacheMock{snapshotErr: repository.ErrNotFound}
	loader := NewCatalogLoader(cache, nil)

	catalog, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if catalog.Len() != len(domain.SeedPermissions()) {
		t.Fatalf("expected the full seed, got %d permissions", catalog.Len())
	}
	if len(cache.stored) != 1 {
		t.Fatalf("a miss must seed the cache once, got %d stores", len(cache.stored))
	}
}

func TestCatalogLoadSurvivesStoreFailure(t *testing.T) {
	cache := &catalogCacheMock{snapshotErr: repository.ErrNotFound, storeErr: errors.New("redis down")}
	loader := NewCatalogLoader(cache, nil)

	catalog, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("a failed seed write must not fail the load, got %v", err)
	}
	if catalog.Len() != len(domain.SeedPermissions()) {
		t.Fatalf("the local seed must still serve, got %d permissions", catalog.Len())
	}
}

func TestCatalogLoadPropagatesCacheFailure(t *testing.T) {
	cache := &catalogCacheMock{snapshotErr: errors.New("connection refused")}
	loader := NewCatalogLoader(cache, nil)

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("non-miss cache failures must propagate")
	}
}

func TestCatalogInvalidateDelegates(t *testing.T) {
	cache := &catalogCacheMock{}
	loader := NewCatalogLoader(cache, nil)

	if err := loader.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	if cache.invalidations != 1 {
		t.Fatalf("expected one invalidation, got %d", cache.invalidations)
	}

	nilLoader := NewCatalogLoader(nil, nil)
	if err := nilLoader.Invalidate(context.Background()); err != nil {
		t.Fatalf("a nil cache must be a no-op, got %v", err)
	}
}
