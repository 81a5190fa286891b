package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/transport/http/middleware"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

type EventHandler struct {
	recorder *usecase.EventRecorder
	history  *usecase.HistoryService
}

func NewEventHandler(recorder *usecase.EventRecorder, history *usecase.HistoryService) *EventHandler {
	return &EventHandler{recorder: recorder, history: history}
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/:id/events", h.RecordEvent)
	r.GET("/:id/events", h.QueryEvents)
	r.GET("/:id/timeline", h.Timeline)
}

// RecordEvent godoc
// @Summary Record a load event
// @Description Appends an immutable event to the load's trail. Duplicate submissions append duplicate rows.
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Load ID"
// @Param request body RecordEventRequest true "Event payload"
// @Success 201 {object} RecordEventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/loads/{id}/events [post]
func (h *EventHandler) RecordEvent(c *gin.Context) {
	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid event payload"))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = middleware.GetActorID(c)
	}

	eventID, err := h.recorder.RecordEvent(c.Request.Context(), usecase.RecordEventInput{
		LoadID:        c.Param("id"),
		UserID:        userID,
		EventType:     req.EventType,
		PreviousValue: req.PreviousValue,
		NewValue:      req.NewValue,
		Notes:         req.Notes,
		NotifyUserID:  strings.TrimSpace(req.NotifyUserID),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to record event"))
		return
	}

	c.JSON(http.StatusCreated, RecordEventResponse{EventID: eventID})
}

// QueryEvents godoc
// @Summary Page through a load's event trail
// @Description Returns events newest first. Pass next_cursor back as the cursor parameter for the next page.
// @Tags Events
// @Produce json
// @Param id path string true "Load ID"
// @Param event_type query string false "Filter by event type"
// @Param from query string false "Inclusive lower bound (RFC3339)"
// @Param to query string false "Inclusive upper bound (RFC3339)"
// @Param cursor query string false "Exclusive upper bound from the previous page (RFC3339)"
// @Param limit query int false "Page size"
// @Success 200 {object} EventPageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/loads/{id}/events [get]
func (h *EventHandler) QueryEvents(c *gin.Context) {
	query := port.EventQuery{
		LoadID:    c.Param("id"),
		EventType: strings.TrimSpace(c.Query("event_type")),
	}

	var parseErr string
	query.From, parseErr = parseTimeParam(c.Query("from"))
	if parseErr != "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, parseErr))
		return
	}

	query.To, parseErr = parseTimeParam(c.Query("to"))
	if parseErr != "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, parseErr))
		return
	}

	query.Before, parseErr = parseTimeParam(c.Query("cursor"))
	if parseErr != "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, parseErr))
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a non-negative integer"))
			return
		}
		query.Limit = limit
	}

	page, err := h.history.QueryByEntity(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to query events"))
		return
	}

	events := make([]EventPayload, 0, len(page.Events))
	for _, event := range page.Events {
		events = append(events, eventToPayload(event))
	}

	c.JSON(http.StatusOK, EventPageResponse{
		Events:     events,
		NextCursor: page.NextCursor,
	})
}

// Timeline godoc
// @Summary View a load's event trail scoped to a role
// @Description Admins see actors and raw diffs; every other role sees descriptions only.
// @Tags Events
// @Produce json
// @Param id path string true "Load ID"
// @Param role query string true "Viewer legacy role"
// @Success 200 {array} usecase.EventView
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/loads/{id}/timeline [get]
func (h *EventHandler) Timeline(c *gin.Context) {
	role, ok := domain.ParseLegacyRole(strings.TrimSpace(c.Query("role")))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown role"))
		return
	}

	views, err := h.history.QueryByRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to query timeline"))
		return
	}

	c.JSON(http.StatusOK, views)
}

func parseTimeParam(raw string) (*time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}

	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, "timestamps must be RFC3339 formatted"
	}

	return &ts, ""
}
