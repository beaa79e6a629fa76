// Package stub provides a deterministic chat client for development and
// tests. It recognizes the two analysis operations by their system prompt and
// returns canned, well-formed JSON.
package stub

import (
	"strings"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// Client implements domain.ChatClient without any network calls.
type Client struct{}

// New constructs a stub chat client.
func New() *Client { return &Client{} }

// ChatJSON returns a canned response matching the requested operation.
func (Client) ChatJSON(_ domain.Context, systemPrompt, _ string, _ int) (string, error) {
	if strings.Contains(systemPrompt, "overall_score") {
		return `{
  "overall_score": 72,
  "dimension_scores": {"technical_skills": 80, "soft_skills": 70, "experience": 75, "education": 65, "location": 60, "compensation": 80},
  "analysis": "Solid technical background with relevant experience.",
  "strengths": ["strong backend skills"],
  "gaps": ["limited leadership exposure"],
  "recommendation": "Proceed to technical interview.",
  "decision": "good_match"
}`, nil
	}
	return `{
  "personal_data": {"full_name": "Alex Stub", "email": "alex.stub@example.com", "phone": "+1 555 0100", "city": "Austin", "state": "TX"},
  "education": [{"level": "bachelor", "institution": "State University", "degree": "Computer Science", "graduation_year": "2015"}],
  "work_experience": [{"company": "Acme", "title": "Software Engineer", "period": "2016-2024", "description": "Backend services.", "achievements": ["reduced latency 40%"]}],
  "technical_skills": ["go", "postgresql", "kafka"],
  "soft_skills": ["communication"],
  "languages": [{"language": "English", "proficiency": "native"}],
  "certifications": [],
  "total_years_experience": 8,
  "professional_summary": "Backend engineer with distributed-systems focus.",
  "strengths": ["systems design"],
  "improvement_areas": ["frontend"],
  "recommended_roles": ["Senior Backend Engineer"]
}`, nil
}
