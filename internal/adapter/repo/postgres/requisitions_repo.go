package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// RequisitionRepo is the read-only view onto requisitions. Writes belong to
// the hiring flows outside this service.
type RequisitionRepo struct{ Pool PgxPool }

// NewRequisitionRepo constructs a RequisitionRepo with the given pool.
func NewRequisitionRepo(p PgxPool) *RequisitionRepo { return &RequisitionRepo{Pool: p} }

// Get loads a requisition by id.
func (r *RequisitionRepo) Get(ctx domain.Context, id string) (domain.Requisition, error) {
	tracer := otel.Tracer("repo.requisitions")
	ctx, span := tracer.Start(ctx, "requisitions.Get")
	defer span.End()
	q := `SELECT id, title, description, city, state, remote, hybrid, salary_min, salary_max,
education_level, years_experience, technical_skills, soft_skills, languages
FROM requisitions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var (
		req   domain.Requisition
		langs []byte
	)
	if err := row.Scan(&req.ID, &req.Title, &req.Description, &req.City, &req.State,
		&req.Remote, &req.Hybrid, &req.SalaryMin, &req.SalaryMax,
		&req.EducationLevel, &req.YearsExperience, &req.TechnicalSkills, &req.SoftSkills, &langs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Requisition{}, fmt.Errorf("op=requisition.get: %w", domain.ErrNotFound)
		}
		return domain.Requisition{}, fmt.Errorf("op=requisition.get: %w", err)
	}
	if len(langs) > 0 {
		if err := json.Unmarshal(langs, &req.Languages); err != nil {
			return domain.Requisition{}, fmt.Errorf("op=requisition.get decode languages: %w", err)
		}
	}
	return req, nil
}
