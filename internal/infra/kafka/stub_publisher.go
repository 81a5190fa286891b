package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoadEventRecorded logs freight.load.event.recorded events.
func (p *StubPublisher) PublishLoadEventRecorded(_ context.Context, event domain.LoadEvent) error {
	payload := map[string]any{
		"event_id":       event.ID,
		"load_id":        event.LoadID,
		"user_id":        event.UserID,
		"event_type":     event.EventType,
		"description":    event.Describe(),
		"previous_value": event.PreviousValue,
		"new_value":      event.NewValue,
		"notes":          event.Notes,
		"occurred_at":    event.OccurredAt,
	}
	p.logEvent(topicLoadEventRecorded, event.UserID, event.OccurredAt, payload)
	return nil
}

// Send logs freight.notification.requested events.
func (p *StubPublisher) Send(_ context.Context, request domain.NotificationRequest) error {
	p.logEvent(topicNotificationRequested, request.UserID, time.Time{}, request)
	return nil
}

var (
	_ port.EventPublisher   = (*StubPublisher)(nil)
	_ port.NotificationSink = (*StubPublisher)(nil)
)
