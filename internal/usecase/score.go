package usecase

import (
	"errors"
	"fmt"

	"log/slog"

	"github.com/talentwire/cv-ingest/internal/adapter/observability"
	"github.com/talentwire/cv-ingest/internal/domain"
)

// ScoreService computes compatibility between a candidate and a requisition
// and records the result. Scoring is best-effort relative to ingestion: the
// caller treats any error here as non-fatal.
type ScoreService struct {
	Requisitions domain.RequisitionRepository
	Matches      domain.MatchRepository
	Applications domain.ApplicationRepository
	Analyzer     domain.Analyzer
}

// NewScoreService constructs a ScoreService with its dependencies.
func NewScoreService(r domain.RequisitionRepository, m domain.MatchRepository, a domain.ApplicationRepository, an domain.Analyzer) ScoreService {
	return ScoreService{Requisitions: r, Matches: m, Applications: a, Analyzer: an}
}

// Score runs the full scoring flow for one candidate/requisition pair and
// returns the overall score. A missing requisition skips scoring silently and
// returns nil.
func (s ScoreService) Score(ctx domain.Context, cand domain.Candidate, requisitionID string) (*int, error) {
	req, err := s.Requisitions.Get(ctx, requisitionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("requisition not found, skipping scoring",
				slog.String("requisition_id", requisitionID),
				slog.String("candidate_id", cand.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("op=score.Score: %w", err)
	}

	analysis, usage, err := s.Analyzer.ScoreMatch(ctx, candidateInput(cand), requisitionInput(req))
	if err != nil {
		return nil, fmt.Errorf("op=score.Score: %w: %v", domain.ErrScoringFailed, err)
	}
	slog.Info("compatibility scored",
		slog.String("candidate_id", cand.ID),
		slog.String("requisition_id", requisitionID),
		slog.Int("overall_score", analysis.OverallScore),
		slog.Int("tokens_in", usage.TokensIn),
		slog.Int("tokens_out", usage.TokensOut))

	m := domain.MatchResult{
		CandidateID:    cand.ID,
		RequisitionID:  requisitionID,
		OverallScore:   analysis.OverallScore,
		Scores:         analysis.Scores,
		Analysis:       analysis.Analysis,
		Strengths:      analysis.Strengths,
		Gaps:           analysis.Gaps,
		Recommendation: analysis.Recommendation,
		Decision:       analysis.Decision,
	}
	if err := s.Matches.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("op=score.Score: %w: %v", domain.ErrScoringFailed, err)
	}

	app, err := s.Applications.GetOrCreate(ctx, cand.ID, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("op=score.Score: %w: %v", domain.ErrScoringFailed, err)
	}
	if err := s.Applications.UpdateMatchScore(ctx, app.ID, analysis.OverallScore); err != nil {
		return nil, fmt.Errorf("op=score.Score: %w: %v", domain.ErrScoringFailed, err)
	}

	observability.ObserveMatchScore(analysis.OverallScore)
	score := analysis.OverallScore
	return &score, nil
}

func candidateInput(c domain.Candidate) domain.CandidateInput {
	return domain.CandidateInput{
		Name:              c.FullName(),
		Email:             c.Email,
		City:              c.City,
		State:             c.State,
		CurrentPosition:   c.CurrentPosition,
		CurrentCompany:    c.CurrentCompany,
		YearsOfExperience: c.YearsOfExperience,
		EducationLevel:    c.EducationLevel,
		TechnicalSkills:   c.Skills,
		SoftSkills:        c.SoftSkills,
		Languages:         c.Languages,
	}
}

func requisitionInput(r domain.Requisition) domain.RequisitionInput {
	return domain.RequisitionInput{
		Title:       r.Title,
		Description: r.Description,
		Location: domain.RequisitionLocation{
			City:   r.City,
			State:  r.State,
			Remote: r.Remote,
			Hybrid: r.Hybrid,
		},
		Salary: domain.RequisitionSalary{Min: r.SalaryMin, Max: r.SalaryMax},
		Requirements: domain.RequisitionRequisite{
			EducationLevel:  r.EducationLevel,
			YearsExperience: r.YearsExperience,
		},
		TechnicalSkills: r.TechnicalSkills,
		SoftSkills:      r.SoftSkills,
		Languages:       r.Languages,
	}
}
