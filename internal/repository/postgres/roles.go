package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

const roleColumns = "id, organization_id, name, description, permissions, is_custom, dashboard_config, created_by, updated_by, created_at, updated_at"

// RoleRepository implements role persistence over PostgreSQL.
type RoleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewRoleRepositoryWithExecutor constructs a repository over any executor
// satisfying pgExecutor, used by tests and transactional call sites.
func NewRoleRepositoryWithExecutor(exec pgExecutor) *RoleRepository {
	return &RoleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new role. The unique index on (organization_id,
// lower(name)) makes the duplicate check atomic under concurrent creates.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	dashboard, err := dashboardToJSONB(role.DashboardConfig)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("freight.roles").
		Columns("id", "organization_id", "name", "description", "permissions", "is_custom", "dashboard_config", "created_by", "updated_by", "created_at", "updated_at").
		Values(role.ID, role.OrganizationID, role.Name, role.Description, role.Permissions, role.IsCustom, dashboard, role.CreatedBy, role.UpdatedBy, role.CreatedAt, role.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert role: %w", err)
	}

	return nil
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("freight.roles").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by id sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByName retrieves a role by organization-scoped name.
func (r *RoleRepository) GetByName(ctx context.Context, organizationID, name string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("freight.roles").
		Where(squirrel.Eq{"organization_id": organizationID}).
		Where("lower(name) = lower(?)", name).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by name sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByOrganization retrieves all roles for an organization sorted by name.
func (r *RoleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("freight.roles").
		Where(squirrel.Eq{"organization_id": organizationID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// Update persists the full role row. Callers resolve the partial patch
// against the current row before handing it here.
func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	dashboard, err := dashboardToJSONB(role.DashboardConfig)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Update("freight.roles").
		Set("name", role.Name).
		Set("description", role.Description).
		Set("permissions", role.Permissions).
		Set("dashboard_config", dashboard).
		Set("updated_by", role.UpdatedBy).
		Set("updated_at", role.UpdatedAt).
		Where(squirrel.Eq{"id": role.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a role by ID.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("freight.roles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var (
		role        domain.Role
		description sql.NullString
		dashboard   []byte
	)

	if err := row.Scan(
		&role.ID,
		&role.OrganizationID,
		&role.Name,
		&description,
		&role.Permissions,
		&role.IsCustom,
		&dashboard,
		&role.CreatedBy,
		&role.UpdatedBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	if description.Valid {
		role.Description = &description.String
	}

	if len(dashboard) > 0 {
		var cfg domain.DashboardConfig
		if err := unmarshalJSONB(dashboard, &cfg); err != nil {
			return nil, err
		}
		role.DashboardConfig = &cfg
	}

	return &role, nil
}

func dashboardToJSONB(cfg *domain.DashboardConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	return marshalJSONB(*cfg)
}

var _ port.RoleRepository = (*RoleRepository)(nil)
