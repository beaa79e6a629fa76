// Package cache provides a Redis-backed cache for completed batch reports.
//
// Reads fall through to the database on any cache failure, so the cache
// is an accelerator, never a source of truth.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talentwire/cv-ingest/internal/domain"
)

const reportKeyPrefix = "batch:report:"

// ReportCache stores batch reports in Redis with a TTL.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReportCache constructs a ReportCache around an existing client.
func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl}
}

// SetReport caches the report for a batch.
func (c *ReportCache) SetReport(ctx domain.Context, batchID string, report domain.BatchReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=cache.SetReport: marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, reportKeyPrefix+batchID, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.SetReport: %w", err)
	}
	return nil
}

// GetReport returns the cached report if present. A missing key or a
// Redis failure both report a miss; the caller reads the database.
func (c *ReportCache) GetReport(ctx domain.Context, batchID string) (domain.BatchReport, bool, error) {
	b, err := c.rdb.Get(ctx, reportKeyPrefix+batchID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.BatchReport{}, false, nil
		}
		return domain.BatchReport{}, false, fmt.Errorf("op=cache.GetReport: %w", err)
	}
	var report domain.BatchReport
	if err := json.Unmarshal(b, &report); err != nil {
		// A corrupt entry is unusable; drop it and report a miss.
		slog.Warn("evicting corrupt report cache entry", slog.String("batch_id", batchID), slog.Any("error", err))
		_ = c.rdb.Del(ctx, reportKeyPrefix+batchID).Err()
		return domain.BatchReport{}, false, nil
	}
	return report, true, nil
}
