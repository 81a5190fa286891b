package domain

// DashboardConfig is an immutable value describing which tabs and widgets a
// user's dashboard shows. Resolution precedence is user override, then role
// config, then DefaultDashboardConfig.
type DashboardConfig struct {
	VisibleTabs []string `json:"visibleTabs"`
	DefaultTab  string   `json:"defaultTab"`
	Widgets     []string `json:"widgets"`
}

// DefaultDashboardConfig returns the hard-coded fallback applied when neither
// the user nor the role carries a config.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		VisibleTabs: []string{"loads", "analytics"},
		DefaultTab:  "loads",
		Widgets:     []string{"activeLoads", "completedLoads", "totalLoads"},
	}
}

// Valid reports whether the config is well formed: a default tab that is a
// member of the visible tab set.
func (c DashboardConfig) Valid() bool {
	if c.DefaultTab == "" || len(c.VisibleTabs) == 0 {
		return false
	}
	for _, tab := range c.VisibleTabs {
		if tab == c.DefaultTab {
			return true
		}
	}
	return false
}

// Repaired returns a copy whose default tab is guaranteed to be visible.
// Misconfigured dashboards must never block login, so a missing default tab
// is prepended rather than surfaced as an error.
func (c DashboardConfig) Repaired() DashboardConfig {
	if c.DefaultTab == "" || len(c.VisibleTabs) == 0 {
		return DefaultDashboardConfig()
	}
	if c.Valid() {
		return c
	}
	repaired := c
	repaired.VisibleTabs = append([]string{c.DefaultTab}, c.VisibleTabs...)
	return repaired
}
