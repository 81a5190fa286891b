package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/port"
)

// ErrInvalidRetention rejects archival runs with a non-positive horizon.
var ErrInvalidRetention = errors.New("retention days must be positive")

// ArchiveMetrics counts rows flipped by archival runs.
type ArchiveMetrics interface {
	RecordsArchived(n int64)
}

// ArchiveService cools aging history records. Archival is one-way: records
// are never deleted and never unarchived, only excluded from default reads.
type ArchiveService struct {
	history port.HistoryRepository
	metrics ArchiveMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewArchiveService constructs an ArchiveService.
func NewArchiveService(history port.HistoryRepository, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{
		history: history,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *ArchiveService) WithClock(now func() time.Time) *ArchiveService {
	s.now = now
	return s
}

// WithMetrics attaches an archived-rows counter.
func (s *ArchiveService) WithMetrics(metrics ArchiveMetrics) *ArchiveService {
	s.metrics = metrics
	return s
}

// ArchiveOlderThan flips every live record older than the retention window
// to archived and returns how many rows changed. Safe to re-run: the second
// pass with the same window archives zero additional rows.
func (s *ArchiveService) ArchiveOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w, got %d", ErrInvalidRetention, days)
	}

	cutoff := s.now().AddDate(0, 0, -days)

	archived, err := s.history.ArchiveBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive records before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if s.metrics != nil {
		s.metrics.RecordsArchived(archived)
	}

	s.logger.Info("archived history records",
		zap.Int("retention_days", days),
		zap.Time("cutoff", cutoff),
		zap.Int64("archived", archived),
	)

	return archived, nil
}
