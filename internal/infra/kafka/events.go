package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/infra/config"
	"github.com/loadtrail/freight-authz/internal/infra/telemetry"
)

const schemaVersion = "1.0"

const (
	topicLoadEventRecorded     = "load.event.recorded"
	topicNotificationRequested = "notification.requested"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
	metrics  *telemetry.Provider
}

// NewEventPublisher constructs a Kafka-backed event publisher. A nil metrics
// provider disables counting.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, metrics *telemetry.Provider, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, metrics: metrics, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		p.metrics.EventPublished(eventType)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoadEventRecorded publishes freight.load.event.recorded events.
func (p *EventPublisher) PublishLoadEventRecorded(ctx context.Context, event domain.LoadEvent) error {
	payload := struct {
		EventID       string         `json:"event_id"`
		LoadID        string         `json:"load_id"`
		UserID        string         `json:"user_id,omitempty"`
		EventType     string         `json:"event_type"`
		Description   string         `json:"description"`
		PreviousValue map[string]any `json:"previous_value,omitempty"`
		NewValue      map[string]any `json:"new_value,omitempty"`
		Notes         *string        `json:"notes,omitempty"`
		OccurredAt    time.Time      `json:"occurred_at"`
	}{
		EventID:       event.ID,
		LoadID:        event.LoadID,
		UserID:        event.UserID,
		EventType:     event.EventType,
		Description:   event.Describe(),
		PreviousValue: event.PreviousValue,
		NewValue:      event.NewValue,
		Notes:         event.Notes,
		OccurredAt:    event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.ID, topicLoadEventRecorded, event.UserID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NotificationPublisher implements port.NotificationSink by handing alert
// requests to the notification service over Kafka.
type NotificationPublisher struct {
	publisher *EventPublisher
}

// NewNotificationPublisher constructs a Kafka-backed notification sink.
func NewNotificationPublisher(publisher *EventPublisher) *NotificationPublisher {
	return &NotificationPublisher{publisher: publisher}
}

// Send publishes freight.notification.requested events.
func (p *NotificationPublisher) Send(ctx context.Context, request domain.NotificationRequest) error {
	return p.publisher.publish(ctx, "", topicNotificationRequested, request.UserID, time.Time{}, request)
}

var _ port.NotificationSink = (*NotificationPublisher)(nil)
