package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

func seedLoadEvents(loadID string, count int, start time.Time) *eventRepoMock {
	repo := &eventRepoMock{}
	for i := 0; i < count; i++ {
		repo.events = append(repo.events, domain.LoadEvent{
			ID:         loadID + "-" + string(rune('a'+i)),
			LoadID:     loadID,
			UserID:     "user-1",
			EventType:  domain.EventNoteAdded,
			OccurredAt: start.Add(time.Duration(i) * time.Minute),
		})
	}
	return repo
}

func TestQueryByEntityRequiresLoadID(t *testing.T) {
	svc := NewHistoryService(&eventRepoMock{}, &historyRepoMock{})

	if _, err := svc.QueryByEntity(context.Background(), port.EventQuery{}); err == nil {
		t.Fatal("expected an error for a missing load id")
	}
}

func TestQueryByEntityDefaultsAndClampsLimit(t *testing.T) {
	events := &eventRepoMock{}
	svc := NewHistoryService(events, &historyRepoMock{})

	if _, err := svc.QueryByEntity(context.Background(), port.EventQuery{LoadID: "load-1"}); err != nil {
		t.Fatalf("QueryByEntity returned error: %v", err)
	}
	if events.lastQuery.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", events.lastQuery.Limit)
	}

	if _, err := svc.QueryByEntity(context.Background(), port.EventQuery{LoadID: "load-1", Limit: 9000}); err != nil {
		t.Fatalf("QueryByEntity returned error: %v", err)
	}
	if events.lastQuery.Limit != 500 {
		t.Fatalf("expected clamped limit 500, got %d", events.lastQuery.Limit)
	}
}

func TestQueryByEntityCursorPagination(t *testing.T) {
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	events := seedLoadEvents("load-1", 5, start)
	svc := NewHistoryService(events, &historyRepoMock{})

	first, err := svc.QueryByEntity(context.Background(), port.EventQuery{LoadID: "load-1", Limit: 2})
	if err != nil {
		t.Fatalf("QueryByEntity returned error: %v", err)
	}
	if len(first.Events) != 2 {
		t.Fatalf("expected a full first page, got %d events", len(first.Events))
	}
	if !first.Events[0].OccurredAt.After(first.Events[1].OccurredAt) {
		t.Fatal("events must be ordered newest first")
	}
	if first.NextCursor == nil {
		t.Fatal("a full page must carry a cursor")
	}
	if !first.NextCursor.Equal(first.Events[1].OccurredAt) {
		t.Fatalf("cursor must be the oldest timestamp on the page, got %v", first.NextCursor)
	}

	second, err := svc.QueryByEntity(context.Background(), port.EventQuery{
		LoadID: "load-1",
		Limit:  2,
		Before: first.NextCursor,
	})
	if err != nil {
		t.Fatalf("QueryByEntity returned error: %v", err)
	}
	if len(second.Events) != 2 {
		t.Fatalf("expected a full second page, got %d events", len(second.Events))
	}
	if !second.Events[0].OccurredAt.Before(*first.NextCursor) {
		t.Fatal("the cursor bound must be exclusive")
	}

	third, err := svc.QueryByEntity(context.Background(), port.EventQuery{
		LoadID: "load-1",
		Limit:  2,
		Before: second.NextCursor,
	})
	if err != nil {
		t.Fatalf("QueryByEntity returned error: %v", err)
	}
	if len(third.Events) != 1 {
		t.Fatalf("expected one event on the last page, got %d", len(third.Events))
	}
	if third.NextCursor != nil {
		t.Fatal("a short page must not carry a cursor")
	}
}

func TestQueryByRoleRedactsForNonAdmins(t *testing.T) {
	notes := "driver called in"
	events := &eventRepoMock{events: []domain.LoadEvent{{
		ID:            "evt-1",
		LoadID:        "load-1",
		UserID:        "user-1",
		EventType:     domain.EventStatusChanged,
		PreviousValue: map[string]any{"status": "pending"},
		NewValue:      map[string]any{"status": "in_transit"},
		Notes:         &notes,
		OccurredAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}}}
	svc := NewHistoryService(events, &historyRepoMock{})

	views, err := svc.QueryByRole(context.Background(), "load-1", domain.LegacyRoleShipper)
	if err != nil {
		t.Fatalf("QueryByRole returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}

	view := views[0]
	if view.ActorID != "" || view.PreviousValue != nil || view.NewValue != nil || view.Notes != nil {
		t.Fatalf("non-admin views must be redacted, got %+v", view)
	}
	if view.Description != "Load load-1 status changed from pending to in_transit" {
		t.Fatalf("unexpected description: %q", view.Description)
	}
}

func TestQueryByRoleExposesDiffToAdmins(t *testing.T) {
	events := &eventRepoMock{events: []domain.LoadEvent{{
		ID:            "evt-1",
		LoadID:        "load-1",
		UserID:        "user-1",
		EventType:     domain.EventStatusChanged,
		PreviousValue: map[string]any{"status": "pending"},
		NewValue:      map[string]any{"status": "in_transit"},
		OccurredAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}}}
	svc := NewHistoryService(events, &historyRepoMock{})

	views, err := svc.QueryByRole(context.Background(), "load-1", domain.LegacyRoleAdmin)
	if err != nil {
		t.Fatalf("QueryByRole returned error: %v", err)
	}

	view := views[0]
	if view.ActorID != "user-1" {
		t.Fatalf("admins must see the actor, got %q", view.ActorID)
	}
	if view.PreviousValue["status"] != "pending" || view.NewValue["status"] != "in_transit" {
		t.Fatalf("admins must see the raw diff, got %+v", view)
	}
}

func TestSearchHidesArchivedByDefault(t *testing.T) {
	history := &historyRepoMock{records: []domain.HistoryRecord{
		{ID: "rec-1", SubjectID: "load-1", Content: "Load load-1 was created", OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "rec-2", SubjectID: "load-1", Content: "Load load-1 status changed", OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), IsArchived: true},
	}}
	svc := NewHistoryService(&eventRepoMock{}, history)

	records, err := svc.Search(context.Background(), port.HistoryFilter{SubjectIDs: []string{"load-1"}})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Fatalf("archived records must stay hidden, got %+v", records)
	}

	records, err = svc.Search(context.Background(), port.HistoryFilter{SubjectIDs: []string{"load-1"}, IncludeArchived: true})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("opting in must surface archived records, got %d", len(records))
	}
}

func TestSearchClampsLimit(t *testing.T) {
	history := &historyRepoMock{}
	svc := NewHistoryService(&eventRepoMock{}, history)

	if _, err := svc.Search(context.Background(), port.HistoryFilter{Limit: -3}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if history.lastFilter.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", history.lastFilter.Limit)
	}
}
