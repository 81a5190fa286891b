package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

func TestHistoryRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewHistoryRepositoryWithExecutor(mock)

	record := domain.HistoryRecord{
		ID:         "rec-1",
		SubjectID:  "load-1",
		ActorID:    "user-1",
		ActionType: "status_changed",
		Details:    map[string]any{"event_id": "evt-1"},
		Content:    "Load load-1 status changed",
		OccurredAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO freight\.history_records`).
		WithArgs(
			record.ID,
			record.SubjectID,
			record.ActorID,
			record.ActionType,
			pgxmock.AnyArg(),
			record.Content,
			record.OccurredAt,
			record.IsArchived,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), record); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewHistoryRepositoryWithExecutor(mock)

	now := time.Now().UTC()
	details := []byte(`{"event_id":"evt-1"}`)

	rows := pgxmock.NewRows([]string{
		"id", "subject_id", "actor_id", "action_type", "details", "content", "occurred_at", "is_archived",
	}).AddRow(
		"rec-1", "load-1", "user-1", "status_changed", details, "Load load-1 status changed", now, false,
	)

	mock.ExpectQuery(`SELECT .*FROM freight\.history_records`).
		WithArgs(false, "load-1", "%status%").
		WillReturnRows(rows)

	records, err := repo.Search(context.Background(), port.HistoryFilter{
		SearchTerm: "status",
		SubjectIDs: []string{"load-1"},
		Limit:      50,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].Details["event_id"] != "evt-1" {
		t.Fatalf("expected details decoded, got %+v", records[0].Details)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_SearchEscapesPatternCharacters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewHistoryRepositoryWithExecutor(mock)

	rows := pgxmock.NewRows([]string{
		"id", "subject_id", "actor_id", "action_type", "details", "content", "occurred_at", "is_archived",
	})

	mock.ExpectQuery(`SELECT .*FROM freight\.history_records`).
		WithArgs(false, "load-1", `%50\%\_done\\%`).
		WillReturnRows(rows)

	_, err = repo.Search(context.Background(), port.HistoryFilter{
		SearchTerm: `50%_done\`,
		SubjectIDs: []string{"load-1"},
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryRepository_ArchiveBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewHistoryRepositoryWithExecutor(mock)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE freight\.history_records`).
		WithArgs(true, false, cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	archived, err := repo.ArchiveBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveBefore returned error: %v", err)
	}
	if archived != 3 {
		t.Fatalf("expected three archived rows, got %d", archived)
	}

	mock.ExpectExec(`UPDATE freight\.history_records`).
		WithArgs(true, false, cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	archived, err = repo.ArchiveBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second ArchiveBefore returned error: %v", err)
	}
	if archived != 0 {
		t.Fatalf("expected zero archived rows on the second pass, got %d", archived)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
