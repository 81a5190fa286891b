package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/transport/http/middleware"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

type RoleHandler struct {
	roles *usecase.RoleService
}

func NewRoleHandler(roles *usecase.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListRoles)
	r.POST("", h.CreateRole)
	r.GET("/:id", h.GetRole)
	r.PATCH("/:id", h.UpdateRole)
	r.DELETE("/:id", h.DeleteRole)
	r.POST("/:id/assign", h.AssignRole)
	r.POST("/:id/unassign", h.UnassignRole)
}

// ListRoles godoc
// @Summary List roles for an organization
// @Description Returns system and custom roles visible to the organization.
// @Tags Roles
// @Produce json
// @Param organization_id query string true "Organization ID"
// @Success 200 {array} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	organizationID := strings.TrimSpace(c.Query("organization_id"))
	if organizationID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "organization_id is required"))
		return
	}

	roles, err := h.roles.ListRoles(c.Request.Context(), organizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list roles"))
		return
	}

	payloads := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, roleToPayload(role))
	}

	c.JSON(http.StatusOK, payloads)
}

// GetRole godoc
// @Summary Fetch a single role
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} RolePayload
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roles.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to fetch role")
		return
	}

	c.JSON(http.StatusOK, roleToPayload(*role))
}

// CreateRole godoc
// @Summary Create a custom role
// @Description Creates an organization-scoped custom role with catalog-validated permissions.
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body RoleCreateRequest true "Role create request"
// @Success 201 {object} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	input := usecase.CreateRoleInput{
		Name:            strings.TrimSpace(req.Name),
		Permissions:     req.Permissions,
		OrganizationID:  strings.TrimSpace(req.OrganizationID),
		DashboardConfig: dashboardFromPayload(req.DashboardConfig),
		CreatedBy:       middleware.GetActorID(c),
	}

	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed != "" {
			descCopy := trimmed
			input.Description = &descCopy
		}
	}

	role, err := h.roles.CreateRole(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDuplicateRole, Status: http.StatusConflict, Message: "role name already exists"},
			{Err: usecase.ErrInvalidPermission, Status: http.StatusUnprocessableEntity, Message: "unknown permission"},
			{Err: usecase.ErrInvalidDashboardConfig, Status: http.StatusUnprocessableEntity, Message: "default tab must be a visible tab"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	c.JSON(http.StatusCreated, roleToPayload(*role))
}

// UpdateRole godoc
// @Summary Update a custom role
// @Description Applies a partial update; absent fields are left untouched.
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body RoleUpdateRequest true "Role update request"
// @Success 200 {object} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [patch]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	patch := usecase.UpdateRolePatch{
		Name:            req.Name,
		Description:     req.Description,
		Permissions:     req.Permissions,
		DashboardConfig: dashboardFromPayload(req.DashboardConfig),
	}

	role, err := h.roles.UpdateRole(c.Request.Context(), c.Param("id"), patch, middleware.GetActorID(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrSystemRoleImmutable, Status: http.StatusForbidden, Message: "cannot modify system role"},
			{Err: usecase.ErrDuplicateRole, Status: http.StatusConflict, Message: "role name already exists"},
			{Err: usecase.ErrInvalidPermission, Status: http.StatusUnprocessableEntity, Message: "unknown permission"},
			{Err: usecase.ErrInvalidDashboardConfig, Status: http.StatusUnprocessableEntity, Message: "default tab must be a visible tab"},
		}, http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, roleToPayload(*role))
}

// DeleteRole godoc
// @Summary Delete a custom role
// @Description Refuses deletion while any user still holds the role.
// @Tags Roles
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	err := h.roles.DeleteRole(c.Request.Context(), c.Param("id"), middleware.GetActorID(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrSystemRoleImmutable, Status: http.StatusForbidden, Message: "cannot modify system role"},
			{Err: usecase.ErrRoleInUse, Status: http.StatusConflict, Message: "role is assigned to users"},
		}, http.StatusInternalServerError, "failed to delete role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body RoleAssignRequest true "Assignment request"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id}/assign [post]
func (h *RoleHandler) AssignRole(c *gin.Context) {
	var req RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	user, err := h.roles.AssignRoleToUser(c.Request.Context(), strings.TrimSpace(req.UserID), c.Param("id"), middleware.GetActorID(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to assign role")
		return
	}

	c.JSON(http.StatusOK, userToPayload(*user))
}

// UnassignRole godoc
// @Summary Remove a user's custom role
// @Description Clears the role assignment; the user falls back to their legacy role.
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param request body RoleAssignRequest true "Assignment request"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/roles/{id}/unassign [post]
func (h *RoleHandler) UnassignRole(c *gin.Context) {
	var req RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	user, err := h.roles.UnassignRole(c.Request.Context(), strings.TrimSpace(req.UserID), middleware.GetActorID(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "failed to unassign role")
		return
	}

	c.JSON(http.StatusOK, userToPayload(*user))
}
