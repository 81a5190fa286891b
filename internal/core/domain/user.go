package domain

import "time"

// User mirrors the persisted representation in the users table. Identity is
// established upstream; this service only consults role linkage and the
// optional per-user dashboard override.
type User struct {
	ID              string
	OrganizationID  string
	LegacyRole      *LegacyRole
	RoleID          *string
	DashboardConfig *DashboardConfig
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
