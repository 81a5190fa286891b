package port

import (
	"context"

	"github.com/loadtrail/freight-authz/internal/core/domain"
)

// NotificationSink receives user-facing alert requests. Delivery mechanics
// (push, SMS, email) are entirely external to this service.
type NotificationSink interface {
	Send(ctx context.Context, request domain.NotificationRequest) error
}
