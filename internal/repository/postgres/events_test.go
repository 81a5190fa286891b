package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

func TestEventRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewEventRepositoryWithExecutor(mock)

	now := time.Now().UTC()
	notes := "driver confirmed pickup"
	event := domain.LoadEvent{
		ID:            "evt-1",
		LoadID:        "load-1",
		UserID:        "user-1",
		EventType:     domain.EventStatusChanged,
		PreviousValue: map[string]any{"status": "pending"},
		NewValue:      map[string]any{"status": "in_transit"},
		Notes:         &notes,
		OccurredAt:    now,
		CreatedAt:     now,
	}

	mock.ExpectExec(`INSERT INTO freight\.load_events`).
		WithArgs(
			event.ID,
			event.LoadID,
			event.UserID,
			event.EventType,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			event.Notes,
			event.OccurredAt,
			event.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), event); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventRepository_QueryByLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewEventRepositoryWithExecutor(mock)

	now := time.Now().UTC()
	previous := []byte(`{"status":"pending"}`)
	next := []byte(`{"status":"in_transit"}`)

	rows := pgxmock.NewRows([]string{
		"id", "load_id", "user_id", "event_type", "previous_value", "new_value", "notes", "occurred_at", "created_at",
	}).AddRow(
		"evt-2", "load-1", "user-1", "status_changed", previous, next, nil, now, now,
	).AddRow(
		"evt-1", "load-1", "user-1", "load_created", nil, nil, nil, now.Add(-time.Hour), now.Add(-time.Hour),
	)

	mock.ExpectQuery(`SELECT .*FROM freight\.load_events`).WithArgs("load-1").WillReturnRows(rows)

	events, err := repo.QueryByLoad(context.Background(), port.EventQuery{LoadID: "load-1", Limit: 50})
	if err != nil {
		t.Fatalf("QueryByLoad returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].ID != "evt-2" || events[1].ID != "evt-1" {
		t.Fatalf("unexpected event order: %+v", events)
	}
	if events[0].PreviousValue["status"] != "pending" || events[0].NewValue["status"] != "in_transit" {
		t.Fatalf("expected jsonb payloads decoded, got %+v", events[0])
	}
	if events[1].PreviousValue != nil || events[1].NewValue != nil {
		t.Fatalf("expected NULL payloads to stay absent, got %+v", events[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventRepository_QueryByLoadCursorBound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewEventRepositoryWithExecutor(mock)

	before := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "load_id", "user_id", "event_type", "previous_value", "new_value", "notes", "occurred_at", "created_at",
	})

	mock.ExpectQuery(`SELECT .*FROM freight\.load_events .*occurred_at < `).
		WithArgs("load-1", before).
		WillReturnRows(rows)

	events, err := repo.QueryByLoad(context.Background(), port.EventQuery{
		LoadID: "load-1",
		Before: &before,
		Limit:  50,
	})
	if err != nil {
		t.Fatalf("QueryByLoad returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events past the cursor, got %d", len(events))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
