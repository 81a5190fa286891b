package domain

import "sort"

// PermissionCatalog is the static permission universe, loaded once at process
// start and passed by value into the resolver and role manager. Refreshed
// only by restart or explicit cache invalidation.
type PermissionCatalog struct {
	permissions map[string]Permission
}

// NewPermissionCatalog builds a catalog from a permission list. Later entries
// with a duplicate name win.
func NewPermissionCatalog(permissions []Permission) PermissionCatalog {
	byName := make(map[string]Permission, len(permissions))
	for _, p := range permissions {
		byName[p.Name] = p
	}
	return PermissionCatalog{permissions: byName}
}

// Has reports whether the named permission exists in the catalog.
func (c PermissionCatalog) Has(name string) bool {
	_, ok := c.permissions[name]
	return ok
}

// Get returns the named permission when it exists in the catalog.
func (c PermissionCatalog) Get(name string) (Permission, bool) {
	p, ok := c.permissions[name]
	return p, ok
}

// Names returns every permission name in the catalog, sorted.
func (c PermissionCatalog) Names() []string {
	names := make([]string, 0, len(c.permissions))
	for name := range c.permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory groups catalog permissions for display, each group sorted by name.
func (c PermissionCatalog) ByCategory() map[PermissionCategory][]Permission {
	grouped := make(map[PermissionCategory][]Permission)
	for _, p := range c.permissions {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
	}
	return grouped
}

// Len returns the number of permissions in the catalog.
func (c PermissionCatalog) Len() int {
	return len(c.permissions)
}

// SeedPermissions is the platform permission universe for the freight domain.
func SeedPermissions() []Permission {
	return []Permission{
		{Name: "read:loads", Description: "View loads and load details", Category: CategoryLoads},
		{Name: "create:loads", Description: "Post new loads", Category: CategoryLoads},
		{Name: "update:loads", Description: "Edit load details and status", Category: CategoryLoads},
		{Name: "delete:loads", Description: "Cancel or remove loads", Category: CategoryLoads},
		{Name: "assign:loads", Description: "Assign loads to carriers and drivers", Category: CategoryLoads},
		{Name: "read:drivers", Description: "View driver profiles", Category: CategoryDrivers},
		{Name: "manage:drivers", Description: "Create and edit driver profiles", Category: CategoryDrivers},
		{Name: "read:carriers", Description: "View carrier profiles", Category: CategoryCarriers},
		{Name: "manage:carriers", Description: "Approve and edit carrier profiles", Category: CategoryCarriers},
		{Name: "read:ratings", Description: "View ratings left on completed loads", Category: CategoryRatings},
		{Name: "create:ratings", Description: "Rate counterparties on completed loads", Category: CategoryRatings},
		{Name: "read:documents", Description: "Download load documents", Category: CategoryDocuments},
		{Name: "upload:documents", Description: "Attach documents to loads", Category: CategoryDocuments},
		{Name: "read:analytics", Description: "View dashboards and reports", Category: CategoryAnalytics},
		{Name: "export:history", Description: "Export audit history for compliance", Category: CategoryAnalytics},
		{Name: "read:history", Description: "View load history and audit trails", Category: CategoryAnalytics},
		{Name: "manage:roles", Description: "Create, edit and assign organization roles", Category: CategoryAdmin},
		{Name: "manage:users", Description: "Manage organization members", Category: CategoryAdmin},
		{Name: "manage:organization", Description: "Edit organization settings", Category: CategoryAdmin},
	}
}
