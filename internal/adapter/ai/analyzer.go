package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/talentwire/cv-ingest/internal/adapter/ai/tokencount"
	"github.com/talentwire/cv-ingest/internal/adapter/observability"
	"github.com/talentwire/cv-ingest/internal/domain"
)

const parseSystemPrompt = `You are an expert technical recruiter. Extract structured data from the CV text you are given.
Respond with ONLY a valid JSON object, no markdown, no commentary, using exactly this structure:
{
  "personal_data": {"full_name": "", "email": "", "phone": "", "city": "", "state": ""},
  "education": [{"level": "", "institution": "", "degree": "", "graduation_year": ""}],
  "work_experience": [{"company": "", "title": "", "period": "", "description": "", "achievements": [""]}],
  "technical_skills": [""],
  "soft_skills": [""],
  "languages": [{"language": "", "proficiency": ""}],
  "certifications": [""],
  "total_years_experience": 0,
  "professional_summary": "",
  "strengths": [""],
  "improvement_areas": [""],
  "recommended_roles": [""]
}
Use empty strings, empty arrays or 0 for anything the CV does not state. Never invent data.`

const scoreSystemPrompt = `You are an expert technical recruiter evaluating how well a candidate fits an open position.
Score each dimension from 0 to 100. Respond with ONLY a valid JSON object, no markdown, no commentary, using exactly this structure:
{
  "overall_score": 0,
  "dimension_scores": {"technical_skills": 0, "soft_skills": 0, "experience": 0, "education": 0, "location": 0, "compensation": 0},
  "analysis": "",
  "strengths": [""],
  "gaps": [""],
  "recommendation": "",
  "decision": "strong_match|good_match|partial_match|weak_match"
}
Base every score strictly on the provided data; score a dimension 50 when the data is insufficient to judge it.`

// Analyzer implements domain.Analyzer over a raw chat client. It owns prompt
// construction, token budgeting, response cleaning and error classification.
type Analyzer struct {
	chat        domain.ChatClient
	counter     *tokencount.Counter
	model       string
	maxTokens   int
	tokenBudget int
}

// NewAnalyzer constructs an Analyzer. tokenBudget caps the CV text fed into a
// parse prompt; zero disables truncation.
func NewAnalyzer(chat domain.ChatClient, model string, maxTokens, tokenBudget int) *Analyzer {
	return &Analyzer{
		chat:        chat,
		counter:     tokencount.NewCounter(),
		model:       model,
		maxTokens:   maxTokens,
		tokenBudget: tokenBudget,
	}
}

// ParseCV extracts a structured profile from raw CV text.
func (a *Analyzer) ParseCV(ctx domain.Context, cvText string) (domain.CVProfile, domain.Usage, error) {
	text := a.counter.Truncate(cvText, a.model, a.tokenBudget)
	if len(text) < len(cvText) {
		slog.Warn("cv text truncated to token budget",
			slog.Int("budget", a.tokenBudget),
			slog.Int("original_chars", len(cvText)),
			slog.Int("truncated_chars", len(text)))
	}
	user := "CV text:\n\n" + text

	var profile domain.CVProfile
	usage, err := a.chatInto(ctx, "parse", parseSystemPrompt, user, &profile)
	if err != nil {
		return domain.CVProfile{}, usage, err
	}
	return profile, usage, nil
}

// ScoreMatch computes compatibility between a candidate and a requisition.
func (a *Analyzer) ScoreMatch(ctx domain.Context, cand domain.CandidateInput, req domain.RequisitionInput) (domain.MatchAnalysis, domain.Usage, error) {
	cb, err := json.Marshal(cand)
	if err != nil {
		return domain.MatchAnalysis{}, domain.Usage{}, fmt.Errorf("op=ai.ScoreMatch marshal candidate: %w", err)
	}
	rb, err := json.Marshal(req)
	if err != nil {
		return domain.MatchAnalysis{}, domain.Usage{}, fmt.Errorf("op=ai.ScoreMatch marshal requisition: %w", err)
	}
	user := fmt.Sprintf("Candidate:\n%s\n\nPosition:\n%s", cb, rb)

	var ma domain.MatchAnalysis
	usage, err := a.chatInto(ctx, "score", scoreSystemPrompt, user, &ma)
	if err != nil {
		return domain.MatchAnalysis{}, usage, err
	}
	clampScores(&ma)
	return ma, usage, nil
}

// chatInto runs one chat call and decodes the cleaned response into out.
// Transport failures map to ErrAnalysisUnavailable, undecodable responses to
// ErrMalformedAnalysis.
func (a *Analyzer) chatInto(ctx domain.Context, op, system, user string, out any) (domain.Usage, error) {
	start := time.Now()
	raw, err := a.chat.ChatJSON(ctx, system, user, a.maxTokens)
	elapsed := time.Since(start)
	usage := a.usage(system, user, raw, elapsed)
	observability.AIRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if err != nil {
		observability.AIRequestsTotal.WithLabelValues(op, "unavailable").Inc()
		return usage, fmt.Errorf("op=ai.%s: %w: %v", op, domain.ErrAnalysisUnavailable, err)
	}

	cleaned := CleanJSONResponse(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		observability.AIRequestsTotal.WithLabelValues(op, "malformed").Inc()
		return usage, fmt.Errorf("op=ai.%s decode: %w: %v (response: %s)",
			op, domain.ErrMalformedAnalysis, err, snippet(raw, 512))
	}

	observability.AIRequestsTotal.WithLabelValues(op, "ok").Inc()
	observability.AITokensTotal.WithLabelValues(op, "in").Add(float64(usage.TokensIn))
	observability.AITokensTotal.WithLabelValues(op, "out").Add(float64(usage.TokensOut))
	slog.Debug("ai call completed",
		slog.String("operation", op),
		slog.Int("tokens_in", usage.TokensIn),
		slog.Int("tokens_out", usage.TokensOut),
		slog.Duration("elapsed", elapsed))
	return usage, nil
}

func (a *Analyzer) usage(system, user, completion string, elapsed time.Duration) domain.Usage {
	in, err := a.counter.CountChatTokens(system, user, a.model)
	if err != nil {
		in = (len(system) + len(user)) / 4
	}
	out, err := a.counter.CountTokens(completion, a.model)
	if err != nil {
		out = len(completion) / 4
	}
	return domain.Usage{TokensIn: in, TokensOut: out, Elapsed: elapsed}
}

func clampScores(ma *domain.MatchAnalysis) {
	ma.OverallScore = clamp(ma.OverallScore)
	ma.Scores.TechnicalSkills = clamp(ma.Scores.TechnicalSkills)
	ma.Scores.SoftSkills = clamp(ma.Scores.SoftSkills)
	ma.Scores.Experience = clamp(ma.Scores.Experience)
	ma.Scores.Education = clamp(ma.Scores.Education)
	ma.Scores.Location = clamp(ma.Scores.Location)
	ma.Scores.Compensation = clamp(ma.Scores.Compensation)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
