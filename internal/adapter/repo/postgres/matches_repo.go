package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// MatchRepo persists compatibility results from PostgreSQL.
type MatchRepo struct{ Pool PgxPool }

// NewMatchRepo constructs a MatchRepo with the given pool.
func NewMatchRepo(p PgxPool) *MatchRepo { return &MatchRepo{Pool: p} }

// Upsert inserts or replaces the result for a (candidate, requisition) pair.
func (r *MatchRepo) Upsert(ctx domain.Context, m domain.MatchResult) error {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.Upsert")
	defer span.End()
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO match_results (id, candidate_id, requisition_id, overall_score,
technical_skills_score, soft_skills_score, experience_score, education_score,
location_score, compensation_score, analysis, strengths, gaps, recommendation, decision, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (candidate_id, requisition_id)
DO UPDATE SET overall_score=EXCLUDED.overall_score,
technical_skills_score=EXCLUDED.technical_skills_score,
soft_skills_score=EXCLUDED.soft_skills_score,
experience_score=EXCLUDED.experience_score,
education_score=EXCLUDED.education_score,
location_score=EXCLUDED.location_score,
compensation_score=EXCLUDED.compensation_score,
analysis=EXCLUDED.analysis, strengths=EXCLUDED.strengths, gaps=EXCLUDED.gaps,
recommendation=EXCLUDED.recommendation, decision=EXCLUDED.decision,
created_at=EXCLUDED.created_at`
	_, err := r.Pool.Exec(ctx, q, id, m.CandidateID, m.RequisitionID, m.OverallScore,
		m.Scores.TechnicalSkills, m.Scores.SoftSkills, m.Scores.Experience, m.Scores.Education,
		m.Scores.Location, m.Scores.Compensation, m.Analysis, m.Strengths, m.Gaps,
		m.Recommendation, m.Decision, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=match.upsert: %w", err)
	}
	return nil
}
