package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/usecase"
)

// AccessHandler answers permission and dashboard resolution queries.
type AccessHandler struct {
	resolver *usecase.RoleResolver
	catalog  *usecase.CatalogLoader
}

func NewAccessHandler(resolver *usecase.RoleResolver, catalog *usecase.CatalogLoader) *AccessHandler {
	return &AccessHandler{resolver: resolver, catalog: catalog}
}

func (h *AccessHandler) RegisterUserRoutes(r *gin.RouterGroup) {
	r.GET("/:id/permissions", h.EffectivePermissions)
	r.GET("/:id/permissions/:name", h.CheckPermission)
	r.GET("/:id/dashboard", h.Dashboard)
}

func (h *AccessHandler) RegisterCatalogRoutes(r *gin.RouterGroup) {
	r.GET("", h.Catalog)
	r.POST("/invalidate", h.InvalidateCatalog)
}

// EffectivePermissions godoc
// @Summary Resolve a user's effective permissions
// @Description Custom roles win over legacy roles; legacy admins get every catalog permission; unknown users resolve to none.
// @Tags Access
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} PermissionsResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id}/permissions [get]
func (h *AccessHandler) EffectivePermissions(c *gin.Context) {
	userID := c.Param("id")

	permissions, err := h.resolver.ResolveEffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve permissions"))
		return
	}

	names := make([]string, 0, len(permissions))
	for name := range permissions {
		names = append(names, name)
	}
	sort.Strings(names)

	c.JSON(http.StatusOK, PermissionsResponse{
		UserID:      userID,
		Permissions: names,
	})
}

// CheckPermission godoc
// @Summary Check one permission for a user
// @Tags Access
// @Produce json
// @Param id path string true "User ID"
// @Param name path string true "Permission name"
// @Success 200 {object} PermissionCheckResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id}/permissions/{name} [get]
func (h *AccessHandler) CheckPermission(c *gin.Context) {
	userID := c.Param("id")
	permission := c.Param("name")

	allowed, err := h.resolver.HasPermission(c.Request.Context(), userID, permission)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve permissions"))
		return
	}

	c.JSON(http.StatusOK, PermissionCheckResponse{
		UserID:     userID,
		Permission: permission,
		Allowed:    allowed,
	})
}

// Dashboard godoc
// @Summary Resolve a user's dashboard configuration
// @Description User override wins over role config wins over the platform default. Invalid configs are silently repaired.
// @Tags Access
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} DashboardConfigPayload
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/{id}/dashboard [get]
func (h *AccessHandler) Dashboard(c *gin.Context) {
	cfg, err := h.resolver.ResolveDashboardConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resolve dashboard"))
		return
	}

	c.JSON(http.StatusOK, dashboardToPayload(cfg))
}

// Catalog godoc
// @Summary List the permission catalog
// @Tags Access
// @Produce json
// @Success 200 {object} CatalogResponse
// @Router /api/v1/permissions [get]
func (h *AccessHandler) Catalog(c *gin.Context) {
	catalog := h.resolver.Catalog()

	payloads := make([]PermissionPayload, 0, catalog.Len())
	for _, name := range catalog.Names() {
		if permission, ok := catalog.Get(name); ok {
			payloads = append(payloads, PermissionPayload{
				Name:        permission.Name,
				Description: permission.Description,
				Category:    string(permission.Category),
			})
		}
	}

	c.JSON(http.StatusOK, CatalogResponse{Permissions: payloads})
}

// InvalidateCatalog godoc
// @Summary Drop the shared permission catalog snapshot
// @Description Forces every instance to reload the catalog on next use.
// @Tags Access
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/permissions/invalidate [post]
func (h *AccessHandler) InvalidateCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusOK, MessageResponse{Message: "catalog cache not configured"})
		return
	}

	if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to invalidate catalog"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "catalog invalidated"})
}
