package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

// CatalogCache stores a JSON snapshot of the permission catalog so restarts
// and sibling instances agree on the permission universe, and an explicit
// invalidation can force a reload without a deploy.
type CatalogCache struct {
	client *redis.Client
	key    string
}

// NewCatalogCache constructs a cache using the provided Redis client and key.
func NewCatalogCache(client *redis.Client, key string) *CatalogCache {
	if key == "" {
		key = "freight:permission-catalog"
	}
	return &CatalogCache{client: client, key: key}
}

// Snapshot returns the cached permission list, or repository.ErrNotFound when
// no snapshot has been stored.
func (c *CatalogCache) Snapshot(ctx context.Context) ([]domain.Permission, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get catalog: %w", err)
	}

	var permissions []domain.Permission
	if err := json.Unmarshal(raw, &permissions); err != nil {
		return nil, fmt.Errorf("unmarshal catalog snapshot: %w", err)
	}

	return permissions, nil
}

// Store replaces the cached snapshot. No TTL: the catalog only changes via
// explicit invalidation or reseed.
func (c *CatalogCache) Store(ctx context.Context, permissions []domain.Permission) error {
	raw, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("marshal catalog snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set catalog: %w", err)
	}

	return nil
}

// Invalidate drops the snapshot so the next loader run reseeds it.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del catalog: %w", err)
	}
	return nil
}

var _ port.CatalogCache = (*CatalogCache)(nil)
