package port

import (
	"context"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// EventPublisher emits recorded events onto the platform event stream for
// downstream consumers (search indexers, analytics, billing).
type EventPublisher interface {
	PublishLoadEventRecorded(ctx context.Context, event domain.LoadEvent) error
}
