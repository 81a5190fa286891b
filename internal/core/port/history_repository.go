package port

import (
	"context"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// HistoryFilter narrows a history search. All predicates are conjunctive.
// SearchTerm matches case-insensitively against the free-text content field
// only, never the structured details payload. Archived rows are invisible to
// every predicate unless IncludeArchived is set.
type HistoryFilter struct {
	SearchTerm      string
	SubjectIDs      []string
	ActorIDs        []string
	ActionTypes     []string
	From            *time.Time
	To              *time.Time
	IncludeArchived bool
	Limit           int
}

// Scoped reports whether the filter pins at least one subject or actor.
// Action types and time ranges narrow a result set but do not tie it to an
// entity, so they alone never satisfy the export scope requirement.
func (f HistoryFilter) Scoped() bool {
	return len(f.SubjectIDs) > 0 || len(f.ActorIDs) > 0
}

// HistoryRepository persists the searchable, archivable history trail.
// ArchiveBefore must apply the flip as a single conditional bulk update so
// concurrent runs and inserts cannot clobber each other.
type HistoryRepository interface {
	Insert(ctx context.Context, record domain.HistoryRecord) error
	Search(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error)
	ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
