package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// Resolver decides whether a parsed profile belongs to a known candidate.
// It only reads; all writes happen later inside the upsert transaction.
type Resolver struct {
	Candidates   domain.CandidateRepository
	NameFallback bool
}

// NewResolver constructs a Resolver.
func NewResolver(c domain.CandidateRepository, nameFallback bool) Resolver {
	return Resolver{Candidates: c, NameFallback: nameFallback}
}

// Resolve returns the id of the existing candidate the profile matches, or
// empty when the profile describes a new identity. Email match wins outright;
// the name heuristic only runs when the profile has no usable email match and
// both name parts are present.
func (r Resolver) Resolve(ctx domain.Context, profile domain.CVProfile) (string, error) {
	email := strings.TrimSpace(strings.ToLower(profile.Personal.Email))
	first, last := SplitFullName(profile.Personal.FullName)

	if email == "" && first == "" {
		return "", fmt.Errorf("op=resolver.Resolve: %w: no email and no name", domain.ErrInsufficientData)
	}

	if email != "" {
		c, err := r.Candidates.FindByEmail(ctx, email)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}

	if r.NameFallback && first != "" && last != "" {
		c, err := r.Candidates.SearchByName(ctx, first, last)
		if err == nil {
			return c.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}

	return "", nil
}

// SplitFullName divides a full name into first name and the rest.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// CandidateFromProfile builds the candidate record a parsed profile implies.
// Missing emails get a synthetic unroutable placeholder so the unique index
// holds; a missing name falls back to the email local part.
func CandidateFromProfile(p domain.CVProfile) domain.Candidate {
	first, last := SplitFullName(p.Personal.FullName)
	email := strings.TrimSpace(strings.ToLower(p.Personal.Email))

	if first == "" && email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			first = email[:at]
		}
	}
	if email == "" {
		email = fmt.Sprintf("noemail+%s@%s", uuid.New().String(), domain.SyntheticEmailDomain)
	}

	return domain.Candidate{
		FirstName:         first,
		LastName:          last,
		Email:             email,
		Phone:             strings.TrimSpace(p.Personal.Phone),
		City:              strings.TrimSpace(p.Personal.City),
		State:             strings.TrimSpace(p.Personal.State),
		CurrentPosition:   latestTitle(p.Experience),
		CurrentCompany:    latestCompany(p.Experience),
		YearsOfExperience: p.TotalYearsExperience,
		EducationLevel:    highestEducation(p.Education),
		Skills:            p.TechnicalSkills,
		SoftSkills:        p.SoftSkills,
		Languages:         p.Languages,
		Certifications:    p.Certifications,
		Summary:           strings.TrimSpace(p.Summary),
	}
}

// latestTitle returns the title of the most recent experience entry.
func latestTitle(exp []domain.ExperienceEntry) string {
	if len(exp) == 0 {
		return ""
	}
	return strings.TrimSpace(exp[0].Title)
}

func latestCompany(exp []domain.ExperienceEntry) string {
	if len(exp) == 0 {
		return ""
	}
	return strings.TrimSpace(exp[0].Company)
}

// highestEducation returns the level of the first education entry carrying
// one. Entries arrive most-significant first from the parse.
func highestEducation(edu []domain.EducationEntry) string {
	for _, e := range edu {
		if lvl := strings.TrimSpace(e.Level); lvl != "" {
			return lvl
		}
	}
	return ""
}
