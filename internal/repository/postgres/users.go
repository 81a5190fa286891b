package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

const userColumns = "id, organization_id, legacy_role, role_id, dashboard_config, created_at, updated_at"

// UserRepository reads users and mutates role linkage over PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewUserRepositoryWithExecutor constructs a repository over any executor
// satisfying pgExecutor.
func NewUserRepositoryWithExecutor(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns).
		From("freight.users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// SetRole updates the user's role reference and returns the updated row.
// A nil roleID clears the assignment.
func (r *UserRepository) SetRole(ctx context.Context, userID string, roleID *string, updatedAt time.Time) (*domain.User, error) {
	stmt, args, err := r.builder.Update("freight.users").
		Set("role_id", roleID).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build set role sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// AnyWithRole reports whether any user currently references the role.
// First-match short-circuit on the by_role_id index.
func (r *UserRepository) AnyWithRole(ctx context.Context, roleID string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("freight.users").
		Where(squirrel.Eq{"role_id": roleID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build any with role sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query any with role: %w", err)
	}

	return true, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user       domain.User
		legacyRole sql.NullString
		roleID     sql.NullString
		dashboard  []byte
	)

	if err := row.Scan(
		&user.ID,
		&user.OrganizationID,
		&legacyRole,
		&roleID,
		&dashboard,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if legacyRole.Valid {
		lr := domain.LegacyRole(legacyRole.String)
		user.LegacyRole = &lr
	}
	if roleID.Valid {
		user.RoleID = &roleID.String
	}
	if len(dashboard) > 0 {
		var cfg domain.DashboardConfig
		if err := unmarshalJSONB(dashboard, &cfg); err != nil {
			return nil, err
		}
		user.DashboardConfig = &cfg
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
