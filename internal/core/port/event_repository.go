package port

import (
	"context"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// EventQuery filters the per-load event trail. Results are ordered strictly
// descending by occurrence time; Before is the exclusive cursor bound taken
// from the last record of the previous page.
type EventQuery struct {
	LoadID    string
	EventType string
	From      *time.Time
	To        *time.Time
	Before    *time.Time
	Limit     int
}

// EventRepository appends and reads immutable load events.
type EventRepository interface {
	Insert(ctx context.Context, event domain.LoadEvent) error
	QueryByLoad(ctx context.Context, query EventQuery) ([]domain.LoadEvent, error)
}
