package domain

import (
	"fmt"
	"time"
)

// Load event types recorded against the audit trail.
const (
	EventLoadCreated      = "load_created"
	EventStatusChanged    = "status_changed"
	EventDriverAssigned   = "driver_assigned"
	EventCarrierAssigned  = "carrier_assigned"
	EventRatingCreated    = "rating_created"
	EventDocumentUploaded = "document_uploaded"
	EventNoteAdded        = "note_added"
)

// LoadEvent is an immutable record of a state change against a load.
// Append-only; never updated or deleted, and duplicates are legitimate since
// each row represents a real occurrence.
type LoadEvent struct {
	ID            string
	LoadID        string
	UserID        string
	EventType     string
	PreviousValue map[string]any
	NewValue      map[string]any
	Notes         *string
	OccurredAt    time.Time
	CreatedAt     time.Time
}

// Describe renders the event as a human-readable sentence. This is the only
// view of an event that non-admin roles ever see.
func (e LoadEvent) Describe() string {
	switch e.EventType {
	case EventLoadCreated:
		return fmt.Sprintf("Load %s was created", e.LoadID)
	case EventStatusChanged:
		prev, next := stringField(e.PreviousValue, "status"), stringField(e.NewValue, "status")
		if prev != "" && next != "" {
			return fmt.Sprintf("Load %s status changed from %s to %s", e.LoadID, prev, next)
		}
		return fmt.Sprintf("Load %s status changed", e.LoadID)
	case EventDriverAssigned:
		return fmt.Sprintf("A driver was assigned to load %s", e.LoadID)
	case EventCarrierAssigned:
		return fmt.Sprintf("A carrier was assigned to load %s", e.LoadID)
	case EventRatingCreated:
		return fmt.Sprintf("A rating was submitted for load %s", e.LoadID)
	case EventDocumentUploaded:
		return fmt.Sprintf("A document was uploaded to load %s", e.LoadID)
	case EventNoteAdded:
		return fmt.Sprintf("A note was added to load %s", e.LoadID)
	default:
		return fmt.Sprintf("Load %s was updated (%s)", e.LoadID, e.EventType)
	}
}

func stringField(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	if s, ok := values[key].(string); ok {
		return s
	}
	return ""
}

// HistoryRecord is the searchable, archivable projection shared by load
// history, message history and the audit log. Details, actor and timestamp
// are immutable once written; only IsArchived transitions, false to true.
type HistoryRecord struct {
	ID         string
	SubjectID  string
	ActorID    string
	ActionType string
	Details    map[string]any
	Content    string
	OccurredAt time.Time
	IsArchived bool
}

// NotificationRequest asks the external delivery layer to alert a user.
// Push, SMS and email mechanics live entirely outside this service.
type NotificationRequest struct {
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	RelatedID   string `json:"related_id"`
	RelatedType string `json:"related_type"`
}
