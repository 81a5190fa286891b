package port

import (
	"context"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// UserRepository reads users and mutates their role linkage. Users are never
// hard-deleted through this service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetRole(ctx context.Context, userID string, roleID *string, updatedAt time.Time) (*domain.User, error)
	AnyWithRole(ctx context.Context, roleID string) (bool, error)
}
