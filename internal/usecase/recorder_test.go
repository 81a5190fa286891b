package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

func TestRecordEventAppendsEventAndHistoryProjection(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	events := &eventRepoMock{}
	history := &historyRepoMock{}
	recorder := NewEventRecorder(events, history, nil, nil, nil).WithClock(fixedClock(now))

	id, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:        "load-7",
		UserID:        "user-1",
		EventType:     domain.EventStatusChanged,
		PreviousValue: map[string]any{"status": "pending"},
		NewValue:      map[string]any{"status": "in_transit"},
	})
	if err != nil {
		t.Fatalf("RecordEvent returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated event id")
	}

	if len(events.events) != 1 {
		t.Fatalf("expected one appended event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.ID != id {
		t.Fatalf("returned id %q does not match stored event id %q", id, event.ID)
	}
	if !event.OccurredAt.Equal(now) || !event.CreatedAt.Equal(now) {
		t.Fatalf("expected timestamps %v, got occurred=%v created=%v", now, event.OccurredAt, event.CreatedAt)
	}

	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	record := history.records[0]
	if record.SubjectID != "load-7" || record.ActorID != "user-1" || record.ActionType != domain.EventStatusChanged {
		t.Fatalf("unexpected history projection: %+v", record)
	}
	if record.Details["event_id"] != id {
		t.Fatalf("history details must carry the event id, got %v", record.Details["event_id"])
	}
	want := "Load load-7 status changed from pending to in_transit"
	if record.Content != want {
		t.Fatalf("expected content %q, got %q", want, record.Content)
	}
}

func TestRecordEventRequiresEventType(t *testing.T) {
	events := &eventRepoMock{}
	recorder := NewEventRecorder(events, &historyRepoMock{}, nil, nil, nil)

	if _, err := recorder.RecordEvent(context.Background(), RecordEventInput{LoadID: "load-7"}); err == nil {
		t.Fatal("expected an error for a missing event type")
	}
	if len(events.events) != 0 {
		t.Fatal("nothing should be appended when validation fails")
	}
}

func TestRecordEventFailsWhenHistoryAppendFails(t *testing.T) {
	history := &historyRepoMock{insertErr: errors.New("history table unavailable")}
	recorder := NewEventRecorder(&eventRepoMock{}, history, nil, nil, nil)

	_, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:    "load-7",
		EventType: domain.EventNoteAdded,
	})
	if err == nil {
		t.Fatal("expected error when the history projection cannot be written")
	}
}

func TestRecordEventSwallowsPublisherFailure(t *testing.T) {
	publisher := &publisherMock{err: errors.New("broker unreachable")}
	recorder := NewEventRecorder(&eventRepoMock{}, &historyRepoMock{}, publisher, nil, nil)

	if _, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:    "load-7",
		EventType: domain.EventDriverAssigned,
	}); err != nil {
		t.Fatalf("publisher failures must be swallowed, got %v", err)
	}
}

func TestRecordEventPublishesToStream(t *testing.T) {
	publisher := &publisherMock{}
	recorder := NewEventRecorder(&eventRepoMock{}, &historyRepoMock{}, publisher, nil, nil)

	id, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:    "load-7",
		UserID:    "user-1",
		EventType: domain.EventDocumentUploaded,
	})
	if err != nil {
		t.Fatalf("RecordEvent returned error: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.published))
	}
	if publisher.published[0].ID != id {
		t.Fatalf("published event id mismatch: %q vs %q", publisher.published[0].ID, id)
	}
}

func TestRecordEventNotifiesOnlyWhenRequested(t *testing.T) {
	sink := &sinkMock{}
	recorder := NewEventRecorder(&eventRepoMock{}, &historyRepoMock{}, nil, sink, nil)

	if _, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:    "load-7",
		EventType: domain.EventStatusChanged,
	}); err != nil {
		t.Fatalf("RecordEvent returned error: %v", err)
	}
	if len(sink.sent) != 0 {
		t.Fatal("no notification should be sent without a notify target")
	}

	if _, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:       "load-7",
		EventType:    domain.EventRatingCreated,
		NotifyUserID: "owner-9",
	}); err != nil {
		t.Fatalf("RecordEvent returned error: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected one notification request, got %d", len(sink.sent))
	}

	request := sink.sent[0]
	if request.UserID != "owner-9" {
		t.Fatalf("unexpected notification target: %s", request.UserID)
	}
	if request.Title != "New rating received" {
		t.Fatalf("unexpected notification title: %q", request.Title)
	}
	if request.RelatedID != "load-7" || request.RelatedType != "load" {
		t.Fatalf("unexpected notification relation: %s/%s", request.RelatedType, request.RelatedID)
	}
}

func TestRecordEventSwallowsSinkFailure(t *testing.T) {
	sink := &sinkMock{err: errors.New("sink unavailable")}
	recorder := NewEventRecorder(&eventRepoMock{}, &historyRepoMock{}, nil, sink, nil)

	if _, err := recorder.RecordEvent(context.Background(), RecordEventInput{
		LoadID:       "load-7",
		EventType:    domain.EventStatusChanged,
		NotifyUserID: "owner-9",
	}); err != nil {
		t.Fatalf("sink failures must be swallowed, got %v", err)
	}
}
