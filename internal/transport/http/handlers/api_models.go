package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DashboardConfigPayload mirrors domain.DashboardConfig on the wire.
type DashboardConfigPayload struct {
	VisibleTabs []string `json:"visible_tabs"`
	DefaultTab  string   `json:"default_tab"`
	Widgets     []string `json:"widgets"`
}

func dashboardToPayload(cfg domain.DashboardConfig) DashboardConfigPayload {
	return DashboardConfigPayload{
		VisibleTabs: cfg.VisibleTabs,
		DefaultTab:  cfg.DefaultTab,
		Widgets:     cfg.Widgets,
	}
}

func dashboardFromPayload(payload *DashboardConfigPayload) *domain.DashboardConfig {
	if payload == nil {
		return nil
	}
	return &domain.DashboardConfig{
		VisibleTabs: payload.VisibleTabs,
		DefaultTab:  payload.DefaultTab,
		Widgets:     payload.Widgets,
	}
}

// RolePayload describes a role returned by the API.
type RolePayload struct {
	ID              string                  `json:"id"`
	OrganizationID  string                  `json:"organization_id"`
	Name            string                  `json:"name"`
	Description     *string                 `json:"description,omitempty"`
	Permissions     []string                `json:"permissions"`
	IsCustom        bool                    `json:"is_custom"`
	DashboardConfig *DashboardConfigPayload `json:"dashboard_config,omitempty"`
	CreatedBy       string                  `json:"created_by,omitempty"`
	UpdatedBy       string                  `json:"updated_by,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func roleToPayload(role domain.Role) RolePayload {
	payload := RolePayload{
		ID:             role.ID,
		OrganizationID: role.OrganizationID,
		Name:           role.Name,
		Description:    role.Description,
		Permissions:    role.Permissions,
		IsCustom:       role.IsCustom,
		CreatedBy:      role.CreatedBy,
		UpdatedBy:      role.UpdatedBy,
		CreatedAt:      role.CreatedAt,
		UpdatedAt:      role.UpdatedAt,
	}

	if role.DashboardConfig != nil {
		cfg := dashboardToPayload(*role.DashboardConfig)
		payload.DashboardConfig = &cfg
	}

	return payload
}

// RoleCreateRequest defines the payload for creating a custom role.
type RoleCreateRequest struct {
	Name            string                  `json:"name" binding:"required"`
	Description     *string                 `json:"description"`
	Permissions     []string                `json:"permissions"`
	OrganizationID  string                  `json:"organization_id" binding:"required"`
	DashboardConfig *DashboardConfigPayload `json:"dashboard_config"`
}

// RoleUpdateRequest carries partial-update fields; absent fields stay untouched.
type RoleUpdateRequest struct {
	Name            *string                 `json:"name"`
	Description     *string                 `json:"description"`
	Permissions     *[]string               `json:"permissions"`
	DashboardConfig *DashboardConfigPayload `json:"dashboard_config"`
}

// RoleAssignRequest names the user receiving the role.
type RoleAssignRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UserPayload describes a user's authorization state.
type UserPayload struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	LegacyRole     *string `json:"legacy_role,omitempty"`
	RoleID         *string `json:"role_id,omitempty"`
}

func userToPayload(user domain.User) UserPayload {
	payload := UserPayload{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		RoleID:         user.RoleID,
	}

	if user.LegacyRole != nil {
		legacy := string(*user.LegacyRole)
		payload.LegacyRole = &legacy
	}

	return payload
}

// PermissionPayload describes a catalog permission.
type PermissionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// CatalogResponse lists the permission catalog grouped flat.
type CatalogResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
}

// PermissionsResponse carries a user's effective permission names.
type PermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// PermissionCheckResponse answers a single permission probe.
type PermissionCheckResponse struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// RecordEventRequest captures an occurrence against a load.
type RecordEventRequest struct {
	EventType     string         `json:"event_type" binding:"required"`
	UserID        string         `json:"user_id"`
	PreviousValue map[string]any `json:"previous_value"`
	NewValue      map[string]any `json:"new_value"`
	Notes         *string        `json:"notes"`
	NotifyUserID  string         `json:"notify_user_id"`
}

// RecordEventResponse returns the identifier of the appended event.
type RecordEventResponse struct {
	EventID string `json:"event_id"`
}

// EventPayload describes a raw load event.
type EventPayload struct {
	ID            string         `json:"id"`
	LoadID        string         `json:"load_id"`
	UserID        string         `json:"user_id,omitempty"`
	EventType     string         `json:"event_type"`
	Description   string         `json:"description"`
	PreviousValue map[string]any `json:"previous_value,omitempty"`
	NewValue      map[string]any `json:"new_value,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func eventToPayload(event domain.LoadEvent) EventPayload {
	return EventPayload{
		ID:            event.ID,
		LoadID:        event.LoadID,
		UserID:        event.UserID,
		EventType:     event.EventType,
		Description:   event.Describe(),
		PreviousValue: event.PreviousValue,
		NewValue:      event.NewValue,
		Notes:         event.Notes,
		OccurredAt:    event.OccurredAt,
	}
}

// EventPageResponse is one cursor page of a load's event trail.
type EventPageResponse struct {
	Events     []EventPayload `json:"events"`
	NextCursor *time.Time     `json:"next_cursor,omitempty"`
}

// HistoryRecordPayload describes a searchable history record.
type HistoryRecordPayload struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subject_id"`
	ActorID    string         `json:"actor_id"`
	ActionType string         `json:"action_type"`
	Details    map[string]any `json:"details,omitempty"`
	Content    string         `json:"content"`
	OccurredAt time.Time      `json:"occurred_at"`
	IsArchived bool           `json:"is_archived"`
}

func historyRecordToPayload(record domain.HistoryRecord) HistoryRecordPayload {
	return HistoryRecordPayload{
		ID:         record.ID,
		SubjectID:  record.SubjectID,
		ActorID:    record.ActorID,
		ActionType: record.ActionType,
		Details:    record.Details,
		Content:    record.Content,
		OccurredAt: record.OccurredAt,
		IsArchived: record.IsArchived,
	}
}

// HistorySearchResponse lists matched history records.
type HistorySearchResponse struct {
	Records []HistoryRecordPayload `json:"records"`
}

// ArchiveRequest sets the retention horizon for an archival run.
type ArchiveRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// ArchiveResponse reports how many records an archival run flipped.
type ArchiveResponse struct {
	Archived int64 `json:"archived"`
}
