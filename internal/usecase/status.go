package usecase

import (
	"log/slog"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// StatusService answers batch status queries, consulting the report cache
// before the database for terminal batches.
type StatusService struct {
	Batches domain.BatchRepository
	Cache   domain.ReportCache
}

// NewStatusService constructs a StatusService.
func NewStatusService(b domain.BatchRepository, c domain.ReportCache) StatusService {
	return StatusService{Batches: b, Cache: c}
}

// Get returns the batch with its report when terminal. Cache hits skip the
// database entirely; database reads of completed batches warm the cache.
func (s StatusService) Get(ctx domain.Context, id string) (domain.Batch, error) {
	if s.Cache != nil {
		if report, ok, err := s.Cache.GetReport(ctx, id); err == nil && ok {
			return domain.Batch{ID: id, Status: domain.BatchCompleted, Report: &report}, nil
		}
	}

	b, err := s.Batches.Get(ctx, id)
	if err != nil {
		return domain.Batch{}, err
	}

	if s.Cache != nil && b.Status == domain.BatchCompleted && b.Report != nil {
		if err := s.Cache.SetReport(ctx, id, *b.Report); err != nil {
			slog.Debug("report cache warm failed", slog.String("batch_id", id), slog.Any("error", err))
		}
	}
	return b, nil
}
