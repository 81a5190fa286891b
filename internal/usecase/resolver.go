package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/repository"
)

// AuthSubject is the exhaustive classification of a user for permission
// resolution. A custom role always wins over the legacy role; the legacy
// admin fallback only applies when no custom role is assigned.
type AuthSubject interface {
	isAuthSubject()
}

// LegacyAdmin marks a user privileged through the pre-RBAC admin role.
type LegacyAdmin struct{}

// CustomRole marks a user governed by an organization-defined role.
type CustomRole struct {
	Role domain.Role
}

// Unprivileged marks a user with no effective permissions.
type Unprivileged struct{}

func (LegacyAdmin) isAuthSubject()  {}
func (CustomRole) isAuthSubject()   {}
func (Unprivileged) isAuthSubject() {}

// PermissionSet is a resolved set of permission names.
type PermissionSet map[string]struct{}

// Has reports membership.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// RoleResolver centralizes the legacy-role / custom-role precedence rule.
// Every permission check in the system flows through here, so the rule is
// encoded exactly once.
type RoleResolver struct {
	users   port.UserRepository
	roles   port.RoleRepository
	catalog domain.PermissionCatalog
}

// NewRoleResolver constructs a resolver over the injected permission catalog.
func NewRoleResolver(users port.UserRepository, roles port.RoleRepository, catalog domain.PermissionCatalog) *RoleResolver {
	return &RoleResolver{users: users, roles: roles, catalog: catalog}
}

// SubjectFor classifies a user. A dangling role reference degrades to
// Unprivileged rather than failing: permission checks are deliberately
// forgiving so a partially-provisioned account cannot break every request.
func (r *RoleResolver) SubjectFor(ctx context.Context, user *domain.User) (AuthSubject, error) {
	if user == nil {
		return Unprivileged{}, nil
	}

	if user.RoleID != nil && *user.RoleID != "" {
		role, err := r.roles.GetByID(ctx, *user.RoleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return Unprivileged{}, nil
			}
			return nil, fmt.Errorf("load role %s: %w", *user.RoleID, err)
		}
		return CustomRole{Role: *role}, nil
	}

	if user.LegacyRole != nil && *user.LegacyRole == domain.LegacyRoleAdmin {
		return LegacyAdmin{}, nil
	}

	return Unprivileged{}, nil
}

// ResolveEffectivePermissions returns the user's effective permission set.
// A missing user yields the empty set, not a failure.
func (r *RoleResolver) ResolveEffectivePermissions(ctx context.Context, userID string) (PermissionSet, error) {
	user, err := r.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	subject, err := r.SubjectFor(ctx, user)
	if err != nil {
		return nil, err
	}

	switch s := subject.(type) {
	case CustomRole:
		return r.expand(s.Role.Permissions), nil
	case LegacyAdmin:
		return r.universe(), nil
	default:
		return PermissionSet{}, nil
	}
}

// HasPermission reports whether the user holds the named permission,
// short-circuiting on the wildcard.
func (r *RoleResolver) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	user, err := r.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	subject, err := r.SubjectFor(ctx, user)
	if err != nil {
		return false, err
	}

	switch s := subject.(type) {
	case CustomRole:
		return s.Role.HasPermission(permission), nil
	case LegacyAdmin:
		return true, nil
	default:
		return false, nil
	}
}

// ResolveDashboardConfig applies the three-level precedence: user override,
// then role config, then the hard default. The result always satisfies
// defaultTab ∈ visibleTabs; upstream misconfiguration is repaired locally
// because a broken dashboard must not block login.
func (r *RoleResolver) ResolveDashboardConfig(ctx context.Context, userID string) (domain.DashboardConfig, error) {
	user, err := r.loadUser(ctx, userID)
	if err != nil {
		return domain.DashboardConfig{}, err
	}
	if user == nil {
		return domain.DefaultDashboardConfig(), nil
	}

	if user.DashboardConfig != nil {
		return user.DashboardConfig.Repaired(), nil
	}

	subject, err := r.SubjectFor(ctx, user)
	if err != nil {
		return domain.DashboardConfig{}, err
	}

	if custom, ok := subject.(CustomRole); ok && custom.Role.DashboardConfig != nil {
		return custom.Role.DashboardConfig.Repaired(), nil
	}

	return domain.DefaultDashboardConfig(), nil
}

// Catalog exposes the injected permission universe.
func (r *RoleResolver) Catalog() domain.PermissionCatalog {
	return r.catalog
}

func (r *RoleResolver) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}

// expand resolves a role's permission list into a concrete set, replacing
// the wildcard with the full catalog universe.
func (r *RoleResolver) expand(permissions []string) PermissionSet {
	for _, p := range permissions {
		if p == domain.WildcardPermission {
			return r.universe()
		}
	}

	set := make(PermissionSet, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return set
}

func (r *RoleResolver) universe() PermissionSet {
	names := r.catalog.Names()
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
