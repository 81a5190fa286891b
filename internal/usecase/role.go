package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

// PermissionManageRoles gates role management endpoints. The service
// primitives themselves perform no permission check: callers gate the
// invocation, keeping mechanism and policy separate.
const PermissionManageRoles = "manage:roles"

var (
	// ErrRoleNotFound indicates the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateRole indicates a role name collision within the organization.
	ErrDuplicateRole = errors.New("role name already exists")
	// ErrSystemRoleImmutable indicates a mutation was attempted on a platform-seeded role.
	ErrSystemRoleImmutable = errors.New("cannot modify system role")
	// ErrRoleInUse indicates deletion is blocked by an active assignment.
	ErrRoleInUse = errors.New("role is assigned to users")
	// ErrInvalidPermission indicates a role references a permission unknown to the catalog.
	ErrInvalidPermission = errors.New("unknown permission")
	// ErrInvalidDashboardConfig indicates a dashboard config whose default tab is not visible.
	ErrInvalidDashboardConfig = errors.New("default tab must be a visible tab")
)

// CreateRoleInput captures the payload for creating a custom role.
type CreateRoleInput struct {
	Name            string
	Description     *string
	Permissions     []string
	OrganizationID  string
	DashboardConfig *domain.DashboardConfig
	CreatedBy       string
}

// UpdateRolePatch carries partial-update semantics: nil fields are left
// untouched, updated_at is always refreshed.
type UpdateRolePatch struct {
	Name            *string
	Description     *string
	Permissions     *[]string
	DashboardConfig *domain.DashboardConfig
}

// RoleService manages custom roles scoped to an organization. System roles
// are immutable through every path here.
type RoleService struct {
	roles   port.RoleRepository
	users   port.UserRepository
	history port.HistoryRepository
	catalog domain.PermissionCatalog
	logger  *zap.Logger
	now     func() time.Time
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, users port.UserRepository, history port.HistoryRepository, catalog domain.PermissionCatalog, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{
		roles:   roles,
		users:   users,
		history: history,
		catalog: catalog,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *RoleService) WithClock(now func() time.Time) *RoleService {
	s.now = now
	return s
}

// ListRoles returns the organization's roles.
func (s *RoleService) ListRoles(ctx context.Context, organizationID string) ([]domain.Role, error) {
	return s.roles.ListByOrganization(ctx, organizationID)
}

// GetRole retrieves a single role.
func (s *RoleService) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// CreateRole provisions a custom role. The storage layer's unique index
// performs the duplicate-name check atomically.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}
	if strings.TrimSpace(input.OrganizationID) == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	permissions, err := s.validatePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	if input.DashboardConfig != nil && !input.DashboardConfig.Valid() {
		return nil, ErrInvalidDashboardConfig
	}

	now := s.now()
	role := domain.Role{
		ID:              uuid.NewString(),
		OrganizationID:  input.OrganizationID,
		Name:            name,
		Permissions:     permissions,
		IsCustom:        true,
		DashboardConfig: input.DashboardConfig,
		CreatedBy:       input.CreatedBy,
		UpdatedBy:       input.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateRole
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.audit(ctx, role.ID, input.CreatedBy, "role_created",
		fmt.Sprintf("Role %q created", role.Name),
		map[string]any{"name": role.Name, "permissions": permissions})

	return &role, nil
}

// UpdateRole applies a partial patch to a custom role.
func (s *RoleService) UpdateRole(ctx context.Context, id string, patch UpdateRolePatch, updatedBy string) (*domain.Role, error) {
	role, err := s.mutableRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, fmt.Errorf("role name is required")
		}
		role.Name = trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if trimmed == "" {
			role.Description = nil
		} else {
			role.Description = &trimmed
		}
	}
	if patch.Permissions != nil {
		permissions, err := s.validatePermissions(*patch.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = permissions
	}
	if patch.DashboardConfig != nil {
		if !patch.DashboardConfig.Valid() {
			return nil, ErrInvalidDashboardConfig
		}
		role.DashboardConfig = patch.DashboardConfig
	}

	role.UpdatedBy = updatedBy
	role.UpdatedAt = s.now()

	if err := s.roles.Update(ctx, *role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateRole
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.audit(ctx, role.ID, updatedBy, "role_updated",
		fmt.Sprintf("Role %q updated", role.Name),
		map[string]any{"name": role.Name})

	return role, nil
}

// DeleteRole removes a custom role with no active assignments. There is no
// cascade and no reassignment: callers unassign users first.
func (s *RoleService) DeleteRole(ctx context.Context, id string, deletedBy string) error {
	role, err := s.mutableRole(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.users.AnyWithRole(ctx, id)
	if err != nil {
		return fmt.Errorf("check role assignments: %w", err)
	}
	if inUse {
		return ErrRoleInUse
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	s.audit(ctx, id, deletedBy, "role_deleted",
		fmt.Sprintf("Role %q deleted", role.Name),
		map[string]any{"name": role.Name})

	return nil
}

// AssignRoleToUser links a role to a user. No permission-elevation check is
// performed here; callers gate the invocation via the resolver.
func (s *RoleService) AssignRoleToUser(ctx context.Context, userID, roleID, assignedBy string) (*domain.User, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}

	user, err := s.users.SetRole(ctx, userID, &roleID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("assign role: %w", err)
	}

	s.audit(ctx, userID, assignedBy, "role_assigned",
		fmt.Sprintf("Role %q assigned to user %s", role.Name, userID),
		map[string]any{"role_id": roleID, "role_name": role.Name})

	return user, nil
}

// UnassignRole clears the user's custom role, dropping them back to their
// legacy role (if any).
func (s *RoleService) UnassignRole(ctx context.Context, userID, unassignedBy string) (*domain.User, error) {
	user, err := s.users.SetRole(ctx, userID, nil, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("unassign role: %w", err)
	}

	s.audit(ctx, userID, unassignedBy, "role_unassigned",
		fmt.Sprintf("Custom role removed from user %s", userID), nil)

	return user, nil
}

// mutableRole loads a role and rejects mutation of system roles.
func (s *RoleService) mutableRole(ctx context.Context, id string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}

	if !role.IsCustom {
		return nil, ErrSystemRoleImmutable
	}

	return role, nil
}

func (s *RoleService) validatePermissions(permissions []string) ([]string, error) {
	deduped := make([]string, 0, len(permissions))
	seen := make(map[string]struct{}, len(permissions))

	for _, p := range permissions {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		if name != domain.WildcardPermission && !s.catalog.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPermission, name)
		}
		seen[name] = struct{}{}
		deduped = append(deduped, name)
	}

	return deduped, nil
}

// audit appends a role-management record to the audit trail. A failed audit
// write never rolls back the mutation it describes.
func (s *RoleService) audit(ctx context.Context, subjectID, actorID, action, content string, details map[string]any) {
	record := domain.HistoryRecord{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		ActorID:    actorID,
		ActionType: action,
		Details:    details,
		Content:    content,
		OccurredAt: s.now(),
	}

	if err := s.history.Insert(ctx, record); err != nil {
		s.logger.Error("write audit record",
			zap.String("action", action),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
	}
}
