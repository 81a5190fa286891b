package port

import (
	"context"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// CatalogCache shares a permission catalog snapshot between instances so an
// explicit invalidation can force a reload without a process restart.
type CatalogCache interface {
	Snapshot(ctx context.Context) ([]domain.Permission, error)
	Store(ctx context.Context, permissions []domain.Permission) error
	Invalidate(ctx context.Context) error
}
