package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

const eventColumns = "id, load_id, user_id, event_type, previous_value, new_value, notes, occurred_at, created_at"

// EventRepository appends and reads the immutable load event trail.
type EventRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEventRepository constructs a PostgreSQL-backed event repository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewEventRepositoryWithExecutor constructs a repository over any executor
// satisfying pgExecutor.
func NewEventRepositoryWithExecutor(exec pgExecutor) *EventRepository {
	return &EventRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert appends an event row. There is no update or delete path.
func (r *EventRepository) Insert(ctx context.Context, event domain.LoadEvent) error {
	previous, err := marshalJSONB(jsonbOrNil(event.PreviousValue))
	if err != nil {
		return err
	}
	next, err := marshalJSONB(jsonbOrNil(event.NewValue))
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("freight.load_events").
		Columns("id", "load_id", "user_id", "event_type", "previous_value", "new_value", "notes", "occurred_at", "created_at").
		Values(event.ID, event.LoadID, event.UserID, event.EventType, previous, next, event.Notes, event.OccurredAt, event.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// QueryByLoad returns events for a load, strictly descending by occurrence
// time. The Before bound is exclusive so cursor pages never repeat rows.
func (r *EventRepository) QueryByLoad(ctx context.Context, query port.EventQuery) ([]domain.LoadEvent, error) {
	builder := r.builder.Select(eventColumns).
		From("freight.load_events").
		Where(squirrel.Eq{"load_id": query.LoadID}).
		OrderBy("occurred_at DESC")

	if query.EventType != "" {
		builder = builder.Where(squirrel.Eq{"event_type": query.EventType})
	}
	if query.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"occurred_at": *query.From})
	}
	if query.To != nil {
		builder = builder.Where(squirrel.LtOrEq{"occurred_at": *query.To})
	}
	if query.Before != nil {
		builder = builder.Where(squirrel.Lt{"occurred_at": *query.Before})
	}
	if query.Limit > 0 {
		builder = builder.Limit(uint64(query.Limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query events sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.LoadEvent, 0)
	for rows.Next() {
		var (
			event    domain.LoadEvent
			previous []byte
			next     []byte
			notes    sql.NullString
		)
		if err := rows.Scan(
			&event.ID,
			&event.LoadID,
			&event.UserID,
			&event.EventType,
			&previous,
			&next,
			&notes,
			&event.OccurredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if err := unmarshalJSONB(previous, &event.PreviousValue); err != nil {
			return nil, err
		}
		if err := unmarshalJSONB(next, &event.NewValue); err != nil {
			return nil, err
		}
		if notes.Valid {
			event.Notes = &notes.String
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// jsonbOrNil keeps empty payload maps out of the jsonb columns so NULL marks
// absence consistently.
func jsonbOrNil(values map[string]any) any {
	if len(values) == 0 {
		return nil
	}
	return values
}

var _ port.EventRepository = (*EventRepository)(nil)
