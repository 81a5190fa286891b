package port

import (
	"context"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// RoleRepository handles role persistence. Create must surface the
// organization-scoped name collision atomically (unique index, not a
// read-then-write race).
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, organizationID, name string) (*domain.Role, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, id string) error
}
