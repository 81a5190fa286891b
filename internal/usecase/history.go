package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// EventPage is one page of a load's event trail. NextCursor carries the
// oldest timestamp on the page; passing it back as the exclusive upper
// bound fetches the next page without duplicates or skips.
type EventPage struct {
	Events     []domain.LoadEvent
	NextCursor *time.Time
}

// EventView is the role-scoped projection of an event. Only admins see the
// actor and the raw before/after diff; every other role gets the
// human-readable description alone.
type EventView struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	EventType     string         `json:"event_type"`
	OccurredAt    time.Time      `json:"occurred_at"`
	ActorID       string         `json:"actor_id,omitempty"`
	PreviousValue map[string]any `json:"previous_value,omitempty"`
	NewValue      map[string]any `json:"new_value,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

// HistoryService answers time-ordered, filtered reads over the event trail
// and the history records. State-free; every call is a pure read.
type HistoryService struct {
	events  port.EventRepository
	history port.HistoryRepository
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(events port.EventRepository, history port.HistoryRepository) *HistoryService {
	return &HistoryService{events: events, history: history}
}

// QueryByEntity pages through a load's events, strictly descending by
// timestamp. The cursor bound is exclusive; sub-resolution timestamp
// collisions are accepted given append-only low-frequency writes.
func (s *HistoryService) QueryByEntity(ctx context.Context, query port.EventQuery) (*EventPage, error) {
	if query.LoadID == "" {
		return nil, fmt.Errorf("load id is required")
	}
	query.Limit = clampLimit(query.Limit)

	events, err := s.events.QueryByLoad(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	page := &EventPage{Events: events}
	if len(events) == query.Limit {
		last := events[len(events)-1].OccurredAt
		page.NextCursor = &last
	}

	return page, nil
}

// QueryByRole returns a load's events projected for the viewer's role. This
// is a capability-scoped projection keyed off the role parameter alone, not
// a permission check.
func (s *HistoryService) QueryByRole(ctx context.Context, loadID string, role domain.LegacyRole) ([]EventView, error) {
	events, err := s.events.QueryByLoad(ctx, port.EventQuery{LoadID: loadID, Limit: maxPageLimit})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	views := make([]EventView, 0, len(events))
	for _, event := range events {
		view := EventView{
			ID:          event.ID,
			Description: event.Describe(),
			EventType:   event.EventType,
			OccurredAt:  event.OccurredAt,
		}
		if role == domain.LegacyRoleAdmin {
			view.ActorID = event.UserID
			view.PreviousValue = event.PreviousValue
			view.NewValue = event.NewValue
			view.Notes = event.Notes
		}
		views = append(views, view)
	}

	return views, nil
}

// Search runs a conjunctive multi-predicate search over history records.
// Archived rows stay invisible unless the filter opts in.
func (s *HistoryService) Search(ctx context.Context, filter port.HistoryFilter) ([]domain.HistoryRecord, error) {
	filter.Limit = clampLimit(filter.Limit)

	records, err := s.history.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}

	return records, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
