package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loadtrail/freight-authz/internal/core/domain"
	"github.com/loadtrail/freight-authz/internal/core/port"
)

// ExportFormat selects the serialization for a compliance download.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

var (
	// ErrScopeRequired rejects exports without an entity-scoping filter, so
	// a bare call can never dump the full table.
	ErrScopeRequired = errors.New("export requires at least one entity filter")
	// ErrUnknownFormat rejects formats other than csv and json.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Export is a serialized history slice ready for download.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}

// exportRecord mirrors domain.HistoryRecord for verbatim JSON export.
type exportRecord struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subject_id"`
	ActorID    string         `json:"actor_id"`
	ActionType string         `json:"action_type"`
	Details    map[string]any `json:"details"`
	Content    string         `json:"content"`
	OccurredAt time.Time      `json:"occurred_at"`
	IsArchived bool           `json:"is_archived"`
}

// ExportService serializes filtered history slices for compliance download.
type ExportService struct {
	history port.HistoryRepository
}

// NewExportService constructs an ExportService.
func NewExportService(history port.HistoryRepository) *ExportService {
	return &ExportService{history: history}
}

// Export runs the filtered search and serializes the result. Either the full
// filtered slice is returned or a clean error; never partial output.
func (s *ExportService) Export(ctx context.Context, filter port.HistoryFilter, format ExportFormat) (*Export, error) {
	if !filter.Scoped() {
		return nil, ErrScopeRequired
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	records, err := s.history.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search history for export: %w", err)
	}

	scope := "filtered"
	if len(filter.SubjectIDs) == 1 {
		scope = filter.SubjectIDs[0]
	}

	switch format {
	case FormatCSV:
		data, err := encodeCSV(records)
		if err != nil {
			return nil, err
		}
		return &Export{
			Data:        data,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("%s-history.csv", scope),
		}, nil
	default:
		data, err := encodeJSON(records)
		if err != nil {
			return nil, err
		}
		return &Export{
			Data:        data,
			ContentType: "application/json",
			Filename:    fmt.Sprintf("%s-history.json", scope),
		}, nil
	}
}

// encodeCSV writes one row per record in the fixed column order. encoding/csv
// doubles embedded quotes per standard escaping; content is preserved in full.
func encodeCSV(records []domain.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"id", "timestamp", "actor_id", "action_type", "status", "content"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range records {
		status := "active"
		if record.IsArchived {
			status = "archived"
		}
		row := []string{
			record.ID,
			record.OccurredAt.Format(time.RFC3339Nano),
			record.ActorID,
			record.ActionType,
			status,
			record.Content,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func encodeJSON(records []domain.HistoryRecord) ([]byte, error) {
	out := make([]exportRecord, 0, len(records))
	for _, record := range records {
		out = append(out, exportRecord{
			ID:         record.ID,
			SubjectID:  record.SubjectID,
			ActorID:    record.ActorID,
			ActionType: record.ActionType,
			Details:    record.Details,
			Content:    record.Content,
			OccurredAt: record.OccurredAt,
			IsArchived: record.IsArchived,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	return data, nil
}
