package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

const historyColumns = "id, subject_id, actor_id, action_type, details, content, occurred_at, is_archived"

// HistoryRepository persists the searchable history trail over PostgreSQL.
type HistoryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewHistoryRepository constructs a PostgreSQL-backed history repository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewHistoryRepositoryWithExecutor constructs a repository over any executor
// satisfying pgExecutor.
func NewHistoryRepositoryWithExecutor(exec pgExecutor) *HistoryRepository {
	return &HistoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert appends a history record.
func (r *HistoryRepository) Insert(ctx context.Context, record domain.HistoryRecord) error {
	details, err := marshalJSONB(jsonbOrNil(record.Details))
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("freight.history_records").
		Columns("id", "subject_id", "actor_id", "action_type", "details", "content", "occurred_at", "is_archived").
		Values(record.ID, record.SubjectID, record.ActorID, record.ActionType, details, record.Content, record.OccurredAt, record.IsArchived).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	return nil
}

// Search applies the conjunctive filter set, newest first. Archived rows are
// excluded from every predicate unless the filter opts in.
func (r *HistoryRepository) Search(ctx context.Context, filter port.HistoryFilter) ([]domain.HistoryRecord, error) {
	builder := r.builder.Select(historyColumns).
		From("freight.history_records").
		OrderBy("occurred_at DESC")

	if !filter.IncludeArchived {
		builder = builder.Where(squirrel.Eq{"is_archived": false})
	}
	if len(filter.SubjectIDs) > 0 {
		builder = builder.Where(squirrel.Eq{"subject_id": filter.SubjectIDs})
	}
	if len(filter.ActorIDs) > 0 {
		builder = builder.Where(squirrel.Eq{"actor_id": filter.ActorIDs})
	}
	if len(filter.ActionTypes) > 0 {
		builder = builder.Where(squirrel.Eq{"action_type": filter.ActionTypes})
	}
	if filter.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"occurred_at": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(squirrel.LtOrEq{"occurred_at": *filter.To})
	}
	if filter.SearchTerm != "" {
		builder = builder.Where("content ILIKE ?", likeContains(filter.SearchTerm))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0)
	for rows.Next() {
		var (
			record  domain.HistoryRecord
			details []byte
		)
		if err := rows.Scan(
			&record.ID,
			&record.SubjectID,
			&record.ActorID,
			&record.ActionType,
			&details,
			&record.Content,
			&record.OccurredAt,
			&record.IsArchived,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}

		if err := unmarshalJSONB(details, &record.Details); err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history records: %w", err)
	}

	return records, nil
}

// likeEscaper neutralizes LIKE metacharacters so search terms match as
// literal substrings. Backslash is PostgreSQL's default LIKE escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeContains(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// ArchiveBefore flips is_archived on every live record older than the
// cutoff. The conditional bulk update makes concurrent runs idempotent at
// the data level: a second pass with the same cutoff affects zero rows.
func (r *HistoryRepository) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Update("freight.history_records").
		Set("is_archived", true).
		Where(squirrel.Eq{"is_archived": false}).
		Where(squirrel.Lt{"occurred_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build archive sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("archive history records: %w", err)
	}

	return res.RowsAffected(), nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
