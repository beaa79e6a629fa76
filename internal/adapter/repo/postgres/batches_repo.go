package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// BatchRepo persists asynchronous batch handles and their reports.
type BatchRepo struct{ Pool PgxPool }

// NewBatchRepo constructs a BatchRepo with the given pool.
func NewBatchRepo(p PgxPool) *BatchRepo { return &BatchRepo{Pool: p} }

// Create inserts a new batch and returns its id (generates one if empty).
func (r *BatchRepo) Create(ctx domain.Context, b domain.Batch) (string, error) {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.Create")
	defer span.End()
	id := b.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO batches (id, status, requisition_id, error, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, b.Status, b.RequisitionID, b.Error, now, now)
	if err != nil {
		return "", fmt.Errorf("op=batch.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates a batch's status and optional error message.
func (r *BatchRepo) UpdateStatus(ctx domain.Context, id string, status domain.BatchStatus, errMsg *string) error {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.UpdateStatus")
	defer span.End()
	errVal := ""
	if errMsg != nil {
		errVal = *errMsg
	}
	q := `UPDATE batches SET status=$2, error=$3, updated_at=$4 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, status, errVal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=batch.update_status: %w", err)
	}
	return nil
}

// SaveReport attaches the terminal report to a batch.
func (r *BatchRepo) SaveReport(ctx domain.Context, id string, report domain.BatchReport) error {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.SaveReport")
	defer span.End()
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=batch.save_report marshal: %w", err)
	}
	q := `UPDATE batches SET report=$2, updated_at=$3 WHERE id=$1`
	_, err = r.Pool.Exec(ctx, q, id, b, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=batch.save_report: %w", err)
	}
	return nil
}

// Get loads a batch by id.
func (r *BatchRepo) Get(ctx domain.Context, id string) (domain.Batch, error) {
	tracer := otel.Tracer("repo.batches")
	ctx, span := tracer.Start(ctx, "batches.Get")
	defer span.End()
	q := `SELECT id, status, COALESCE(requisition_id,''), COALESCE(error,''), report, created_at, updated_at FROM batches WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var (
		b      domain.Batch
		report []byte
	)
	if err := row.Scan(&b.ID, &b.Status, &b.RequisitionID, &b.Error, &report, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Batch{}, fmt.Errorf("op=batch.get: %w", domain.ErrNotFound)
		}
		return domain.Batch{}, fmt.Errorf("op=batch.get: %w", err)
	}
	if len(report) > 0 {
		var rep domain.BatchReport
		if err := json.Unmarshal(report, &rep); err != nil {
			return domain.Batch{}, fmt.Errorf("op=batch.get decode report: %w", err)
		}
		b.Report = &rep
	}
	return b, nil
}
