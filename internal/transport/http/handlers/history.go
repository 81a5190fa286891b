package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

type HistoryHandler struct {
	history *usecase.HistoryService
	archive *usecase.ArchiveService
}

func NewHistoryHandler(history *usecase.HistoryService, archive *usecase.ArchiveService) *HistoryHandler {
	return &HistoryHandler{history: history, archive: archive}
}

func (h *HistoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.Search)
	r.POST("/archive", h.Archive)
}

// Search godoc
// @Summary Search history records
// @Description Conjunctive multi-predicate search. Archived records are excluded unless include_archived is set.
// @Tags History
// @Produce json
// @Param q query string false "Case-insensitive substring match against content"
// @Param subject_id query []string false "Subject IDs"
// @Param actor_id query []string false "Actor IDs"
// @Param action_type query []string false "Action types"
// @Param from query string false "Inclusive lower bound (RFC3339)"
// @Param to query string false "Inclusive upper bound (RFC3339)"
// @Param include_archived query bool false "Include archived records"
// @Param limit query int false "Result cap"
// @Success 200 {object} HistorySearchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/history [get]
func (h *HistoryHandler) Search(c *gin.Context) {
	filter, errMsg := historyFilterFromQuery(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, errMsg))
		return
	}

	records, err := h.history.Search(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to search history"))
		return
	}

	payloads := make([]HistoryRecordPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, historyRecordToPayload(record))
	}

	c.JSON(http.StatusOK, HistorySearchResponse{Records: payloads})
}

// Archive godoc
// @Summary Archive history records older than a retention horizon
// @Description Flips is_archived on matching records in one bulk update. Already-archived records are untouched, so reruns are no-ops.
// @Tags History
// @Accept json
// @Produce json
// @Param request body ArchiveRequest true "Retention horizon"
// @Success 200 {object} ArchiveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/history/archive [post]
func (h *HistoryHandler) Archive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid archive payload"))
		return
	}

	archived, err := h.archive.ArchiveOlderThan(c.Request.Context(), req.OlderThanDays)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRetention, Status: http.StatusBadRequest, Message: "older_than_days must be positive"},
		}, http.StatusInternalServerError, "failed to archive history")
		return
	}

	c.JSON(http.StatusOK, ArchiveResponse{Archived: archived})
}

func historyFilterFromQuery(c *gin.Context) (port.HistoryFilter, string) {
	filter := port.HistoryFilter{
		SearchTerm:  strings.TrimSpace(c.Query("q")),
		SubjectIDs:  cleanList(c.QueryArray("subject_id")),
		ActorIDs:    cleanList(c.QueryArray("actor_id")),
		ActionTypes: cleanList(c.QueryArray("action_type")),
	}

	var errMsg string
	filter.From, errMsg = parseTimeParam(c.Query("from"))
	if errMsg != "" {
		return filter, errMsg
	}

	filter.To, errMsg = parseTimeParam(c.Query("to"))
	if errMsg != "" {
		return filter, errMsg
	}

	if raw := c.Query("include_archived"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, "include_archived must be a boolean"
		}
		filter.IncludeArchived = include
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, "limit must be a non-negative integer"
		}
		filter.Limit = limit
	}

	return filter, ""
}

func cleanList(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
