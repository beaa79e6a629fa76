package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// ApplicationRepo reads-or-creates candidate/requisition associations.
type ApplicationRepo struct{ Pool PgxPool }

// NewApplicationRepo constructs an ApplicationRepo with the given pool.
func NewApplicationRepo(p PgxPool) *ApplicationRepo { return &ApplicationRepo{Pool: p} }

// GetOrCreate returns the existing association or creates one in the applied
// status. A concurrent create racing on the pair unique index falls back to
// reading the winner.
func (r *ApplicationRepo) GetOrCreate(ctx domain.Context, candidateID, requisitionID string) (domain.Application, error) {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.GetOrCreate")
	defer span.End()

	if a, err := r.get(ctx, candidateID, requisitionID); err == nil {
		return a, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Application{}, err
	}

	a := domain.Application{
		ID:            uuid.New().String(),
		CandidateID:   candidateID,
		RequisitionID: requisitionID,
		Status:        domain.ApplicationStatusApplied,
		CreatedAt:     time.Now().UTC(),
	}
	q := `INSERT INTO applications (id, candidate_id, requisition_id, status, match_percentage, created_at)
VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (candidate_id, requisition_id) DO NOTHING`
	tag, err := r.Pool.Exec(ctx, q, a.ID, a.CandidateID, a.RequisitionID, a.Status, a.MatchPercentage, a.CreatedAt)
	if err != nil {
		return domain.Application{}, fmt.Errorf("op=application.create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.get(ctx, candidateID, requisitionID)
	}
	return a, nil
}

// UpdateMatchScore sets the headline match percentage on an association.
func (r *ApplicationRepo) UpdateMatchScore(ctx domain.Context, id string, score int) error {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.UpdateMatchScore")
	defer span.End()
	q := `UPDATE applications SET match_percentage=$2 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, score)
	if err != nil {
		return fmt.Errorf("op=application.update_match_score: %w", err)
	}
	return nil
}

func (r *ApplicationRepo) get(ctx domain.Context, candidateID, requisitionID string) (domain.Application, error) {
	q := `SELECT id, candidate_id, requisition_id, status, match_percentage, created_at
FROM applications WHERE candidate_id=$1 AND requisition_id=$2`
	row := r.Pool.QueryRow(ctx, q, candidateID, requisitionID)
	var a domain.Application
	if err := row.Scan(&a.ID, &a.CandidateID, &a.RequisitionID, &a.Status, &a.MatchPercentage, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Application{}, fmt.Errorf("op=application.get: %w", domain.ErrNotFound)
		}
		return domain.Application{}, fmt.Errorf("op=application.get: %w", err)
	}
	return a, nil
}
