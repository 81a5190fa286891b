package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

// RecordEventInput captures a domain occurrence against a load. The recorder
// trusts its callers to supply coherent before/after payloads.
type RecordEventInput struct {
	LoadID        string
	UserID        string
	EventType     string
	PreviousValue map[string]any
	NewValue      map[string]any
	Notes         *string
	// NotifyUserID, when set, asks the notification sink to alert that user
	// about the event (e.g. the load owner on a status change).
	NotifyUserID string
}

// EventRecorder appends immutable load events. Retries are deliberately
// non-idempotent: every call represents a real occurrence, so duplicates are
// duplicate rows by design.
type EventRecorder struct {
	events    port.EventRepository
	history   port.HistoryRepository
	publisher port.EventPublisher
	sink      port.NotificationSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventRecorder constructs an EventRecorder.
func NewEventRecorder(events port.EventRepository, history port.HistoryRepository, publisher port.EventPublisher, sink port.NotificationSink, logger *zap.Logger) *EventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRecorder{
		events:    events,
		history:   history,
		publisher: publisher,
		sink:      sink,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (r *EventRecorder) WithClock(now func() time.Time) *EventRecorder {
	r.now = now
	return r
}

// RecordEvent appends the event and its searchable history projection, then
// fans out to the event stream and notification sink. Only the appends can
// fail; stream and sink errors are logged and swallowed so the recorder
// stays fire-and-forget safe for its callers.
func (r *EventRecorder) RecordEvent(ctx context.Context, input RecordEventInput) (string, error) {
	if input.EventType == "" {
		return "", fmt.Errorf("event type is required")
	}

	now := r.now()
	event := domain.LoadEvent{
		ID:            uuid.NewString(),
		LoadID:        input.LoadID,
		UserID:        input.UserID,
		EventType:     input.EventType,
		PreviousValue: input.PreviousValue,
		NewValue:      input.NewValue,
		Notes:         input.Notes,
		OccurredAt:    now,
		CreatedAt:     now,
	}

	if err := r.events.Insert(ctx, event); err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}

	record := domain.HistoryRecord{
		ID:         uuid.NewString(),
		SubjectID:  event.LoadID,
		ActorID:    event.UserID,
		ActionType: event.EventType,
		Details: map[string]any{
			"event_id":       event.ID,
			"previous_value": event.PreviousValue,
			"new_value":      event.NewValue,
		},
		Content:    event.Describe(),
		OccurredAt: now,
	}
	if err := r.history.Insert(ctx, record); err != nil {
		return "", fmt.Errorf("append history record: %w", err)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishLoadEventRecorded(ctx, event); err != nil {
			r.logger.Warn("publish recorded event",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
		}
	}

	if r.sink != nil && input.NotifyUserID != "" {
		request := notificationFor(event, input.NotifyUserID)
		if err := r.sink.Send(ctx, request); err != nil {
			r.logger.Warn("send notification request",
				zap.String("event_id", event.ID),
				zap.String("user_id", input.NotifyUserID),
				zap.Error(err),
			)
		}
	}

	return event.ID, nil
}

func notificationFor(event domain.LoadEvent, userID string) domain.NotificationRequest {
	title := "Load updated"
	switch event.EventType {
	case domain.EventRatingCreated:
		title = "New rating received"
	case domain.EventStatusChanged:
		title = "Load status changed"
	case domain.EventDriverAssigned:
		title = "Driver assigned"
	case domain.EventDocumentUploaded:
		title = "Document uploaded"
	}

	return domain.NotificationRequest{
		UserID:      userID,
		Type:        event.EventType,
		Title:       title,
		Message:     event.Describe(),
		RelatedID:   event.LoadID,
		RelatedType: "load",
	}
}
