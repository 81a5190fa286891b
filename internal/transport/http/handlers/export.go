package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/usecase"
)

type ExportHandler struct {
	export *usecase.ExportService
}

func NewExportHandler(export *usecase.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

func (h *ExportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/export", h.Download)
}

// Download godoc
// @Summary Export filtered history as CSV or JSON
// @Description Serializes the filtered slice for compliance download. The filter must pin at least one subject, actor or action type.
// @Tags History
// @Produce text/csv
// @Produce json
// @Param format query string true "Export format (csv or json)"
// @Param q query string false "Case-insensitive substring match against content"
// @Param subject_id query []string false "Subject IDs"
// @Param actor_id query []string false "Actor IDs"
// @Param action_type query []string false "Action types"
// @Param from query string false "Inclusive lower bound (RFC3339)"
// @Param to query string false "Inclusive upper bound (RFC3339)"
// @Param include_archived query bool false "Include archived records"
// @Success 200 {string} string "Serialized export"
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/history/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	filter, errMsg := historyFilterFromQuery(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, errMsg))
		return
	}

	format := usecase.ExportFormat(c.DefaultQuery("format", string(usecase.FormatCSV)))

	export, err := h.export.Export(c.Request.Context(), filter, format)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrScopeRequired, Status: http.StatusUnprocessableEntity, Message: "export requires at least one entity filter"},
			{Err: usecase.ErrUnknownFormat, Status: http.StatusBadRequest, Message: "format must be csv or json"},
		}, http.StatusInternalServerError, "failed to export history")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
