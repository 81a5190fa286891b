package domain

import "time"

// WildcardPermission grants every permission known to the catalog,
// including ones added after the role was created.
const WildcardPermission = "all"

// LegacyRole enumerates the fixed pre-RBAC roles. Users carry one of these
// until an organization assigns them a custom role.
type LegacyRole string

const (
	LegacyRoleAdmin   LegacyRole = "admin"
	LegacyRoleShipper LegacyRole = "shipper"
	LegacyRoleCarrier LegacyRole = "carrier"
	LegacyRoleDriver  LegacyRole = "driver"
)

// ParseLegacyRole maps a string onto a known legacy role.
func ParseLegacyRole(s string) (LegacyRole, bool) {
	switch LegacyRole(s) {
	case LegacyRoleAdmin, LegacyRoleShipper, LegacyRoleCarrier, LegacyRoleDriver:
		return LegacyRole(s), true
	}
	return "", false
}

// Role groups permissions for an organization. System roles (IsCustom=false)
// are seeded by the platform and never mutated through the role manager.
type Role struct {
	ID              string
	OrganizationID  string
	Name            string
	Description     *string
	Permissions     []string
	IsCustom        bool
	DashboardConfig *DashboardConfig
	CreatedBy       string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPermission reports whether the role grants the named permission,
// short-circuiting on the wildcard.
func (r Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p == WildcardPermission || p == name {
			return true
		}
	}
	return false
}

// PermissionCategory buckets permissions for catalog display.
type PermissionCategory string

const (
	CategoryLoads     PermissionCategory = "loads"
	CategoryDrivers   PermissionCategory = "drivers"
	CategoryCarriers  PermissionCategory = "carriers"
	CategoryRatings   PermissionCategory = "ratings"
	CategoryDocuments PermissionCategory = "documents"
	CategoryAnalytics PermissionCategory = "analytics"
	CategoryAdmin     PermissionCategory = "administration"
)

// Permission is a named capability, e.g. "read:loads". Seed data; not
// user-mutable.
type Permission struct {
	Name        string
	Description string
	Category    PermissionCategory
}
