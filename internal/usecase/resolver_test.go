package usecase

import (
	"context"
	"testing"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

func testCatalog() domain.PermissionCatalog {
	return domain.NewPermissionCatalog(domain.SeedPermissions())
}

func TestResolverCustomRoleWinsOverLegacyAdmin(t *testing.T) {
	role := domain.Role{
		ID:             "role-1",
		OrganizationID: "org-1",
		Name:           "Dispatcher",
		Permissions:    []string{"read:loads", "assign:loads"},
		IsCustom:       true,
	}
	user := domain.User{
		ID:             "user-1",
		OrganizationID: "org-1",
		LegacyRole:     legacyPtr(domain.LegacyRoleAdmin),
		RoleID:         strPtr("role-1"),
	}

	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(role), testCatalog())

	permissions, err := resolver.ResolveEffectivePermissions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveEffectivePermissions returned error: %v", err)
	}

	if len(permissions) != 2 {
		t.Fatalf("expected the custom role's 2 permissions, got %d", len(permissions))
	}
	if !permissions.Has("read:loads") || !permissions.Has("assign:loads") {
		t.Fatalf("unexpected permission set: %v", permissions)
	}
	if permissions.Has("manage:roles") {
		t.Fatal("legacy admin fallback must not apply when a custom role is assigned")
	}
}

func TestResolverLegacyAdminGetsFullCatalog(t *testing.T) {
	user := domain.User{
		ID:             "user-1",
		OrganizationID: "org-1",
		LegacyRole:     legacyPtr(domain.LegacyRoleAdmin),
	}

	catalog := testCatalog()
	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(), catalog)

	permissions, err := resolver.ResolveEffectivePermissions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveEffectivePermissions returned error: %v", err)
	}

	if len(permissions) != catalog.Len() {
		t.Fatalf("expected %d permissions, got %d", catalog.Len(), len(permissions))
	}
}

func TestResolverNonAdminLegacyRoleIsUnprivileged(t *testing.T) {
	user := domain.User{
		ID:         "user-1",
		LegacyRole: legacyPtr(domain.LegacyRoleShipper),
	}

	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(), testCatalog())

	allowed, err := resolver.HasPermission(context.Background(), "user-1", "read:loads")
	if err != nil {
		t.Fatalf("HasPermission returned error: %v", err)
	}
	if allowed {
		t.Fatal("non-admin legacy role must not grant permissions")
	}
}

func TestResolverWildcardExpandsToCatalog(t *testing.T) {
	role := domain.Role{
		ID:          "role-1",
		Permissions: []string{domain.WildcardPermission},
		IsCustom:    true,
	}
	user := domain.User{ID: "user-1", RoleID: strPtr("role-1")}

	catalog := testCatalog()
	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(role), catalog)

	permissions, err := resolver.ResolveEffectivePermissions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveEffectivePermissions returned error: %v", err)
	}

	if len(permissions) != catalog.Len() {
		t.Fatalf("expected wildcard to expand to %d permissions, got %d", catalog.Len(), len(permissions))
	}

	allowed, err := resolver.HasPermission(context.Background(), "user-1", "manage:organization")
	if err != nil {
		t.Fatalf("HasPermission returned error: %v", err)
	}
	if !allowed {
		t.Fatal("wildcard role must grant every catalog permission")
	}
}

func TestResolverMissingUserResolvesToEmptySet(t *testing.T) {
	resolver := NewRoleResolver(newUserRepoMock(), newRoleRepoMock(), testCatalog())

	permissions, err := resolver.ResolveEffectivePermissions(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("expected missing user to resolve cleanly, got error: %v", err)
	}
	if len(permissions) != 0 {
		t.Fatalf("expected empty permission set, got %v", permissions)
	}

	allowed, err := resolver.HasPermission(context.Background(), "ghost", "read:loads")
	if err != nil {
		t.Fatalf("HasPermission returned error: %v", err)
	}
	if allowed {
		t.Fatal("missing user must not hold permissions")
	}
}

func TestResolverDanglingRoleReferenceDegradesToUnprivileged(t *testing.T) {
	user := domain.User{
		ID:         "user-1",
		LegacyRole: legacyPtr(domain.LegacyRoleAdmin),
		RoleID:     strPtr("deleted-role"),
	}

	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(), testCatalog())

	subject, err := resolver.SubjectFor(context.Background(), &user)
	if err != nil {
		t.Fatalf("SubjectFor returned error: %v", err)
	}
	if _, ok := subject.(Unprivileged); !ok {
		t.Fatalf("expected Unprivileged for dangling role reference, got %T", subject)
	}
}

func TestResolverDashboardPrecedence(t *testing.T) {
	roleCfg := &domain.DashboardConfig{
		VisibleTabs: []string{"loads", "drivers"},
		DefaultTab:  "drivers",
		Widgets:     []string{"activeLoads"},
	}
	userCfg := &domain.DashboardConfig{
		VisibleTabs: []string{"analytics"},
		DefaultTab:  "analytics",
		Widgets:     []string{"totalLoads"},
	}

	role := domain.Role{ID: "role-1", IsCustom: true, DashboardConfig: roleCfg}

	tests := []struct {
		name        string
		user        domain.User
		wantTab     string
		wantDefault bool
	}{
		{
			name:    "user override wins",
			user:    domain.User{ID: "u1", RoleID: strPtr("role-1"), DashboardConfig: userCfg},
			wantTab: "analytics",
		},
		{
			name:    "role config when no user override",
			user:    domain.User{ID: "u2", RoleID: strPtr("role-1")},
			wantTab: "drivers",
		},
		{
			name:        "platform default when neither is set",
			user:        domain.User{ID: "u3"},
			wantDefault: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := NewRoleResolver(newUserRepoMock(tc.user), newRoleRepoMock(role), testCatalog())

			cfg, err := resolver.ResolveDashboardConfig(context.Background(), tc.user.ID)
			if err != nil {
				t.Fatalf("ResolveDashboardConfig returned error: %v", err)
			}

			if tc.wantDefault {
				want := domain.DefaultDashboardConfig()
				if cfg.DefaultTab != want.DefaultTab {
					t.Fatalf("expected default tab %q, got %q", want.DefaultTab, cfg.DefaultTab)
				}
				return
			}

			if cfg.DefaultTab != tc.wantTab {
				t.Fatalf("expected default tab %q, got %q", tc.wantTab, cfg.DefaultTab)
			}
		})
	}
}

func TestResolverRepairsInvalidDashboardConfig(t *testing.T) {
	broken := &domain.DashboardConfig{
		VisibleTabs: []string{"loads"},
		DefaultTab:  "analytics",
		Widgets:     []string{"activeLoads"},
	}
	user := domain.User{ID: "user-1", DashboardConfig: broken}

	resolver := NewRoleResolver(newUserRepoMock(user), newRoleRepoMock(), testCatalog())

	cfg, err := resolver.ResolveDashboardConfig(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ResolveDashboardConfig returned error: %v", err)
	}

	if !cfg.Valid() {
		t.Fatalf("resolved config must satisfy default tab visibility, got %+v", cfg)
	}
	if cfg.DefaultTab != "analytics" {
		t.Fatalf("repair must keep the configured default tab, got %q", cfg.DefaultTab)
	}
	if !containsString(cfg.VisibleTabs, "analytics") {
		t.Fatalf("repair must make the default tab visible, got %v", cfg.VisibleTabs)
	}
}
