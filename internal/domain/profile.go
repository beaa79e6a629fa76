package domain

import "time"

// CVProfile is the structured record the AI analysis produces from raw CV
// text. Validated once at the adapter boundary; trusted internally.
type CVProfile struct {
	Personal             PersonalData      `json:"personal_data"`
	Education            []EducationEntry  `json:"education"`
	Experience           []ExperienceEntry `json:"work_experience"`
	TechnicalSkills      []string          `json:"technical_skills"`
	SoftSkills           []string          `json:"soft_skills"`
	Languages            []LanguageSkill   `json:"languages"`
	Certifications       []string          `json:"certifications"`
	TotalYearsExperience int               `json:"total_years_experience"`
	Summary              string            `json:"professional_summary"`
	Strengths            []string          `json:"strengths"`
	ImprovementAreas     []string          `json:"improvement_areas"`
	RecommendedRoles     []string          `json:"recommended_roles"`
}

// PersonalData carries the identity fields used for resolution.
type PersonalData struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// EducationEntry is one education record from the CV.
type EducationEntry struct {
	Level          string `json:"level"`
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	GraduationYear string `json:"graduation_year"`
}

// ExperienceEntry is one work-history record from the CV, most recent first.
type ExperienceEntry struct {
	Company      string   `json:"company"`
	Title        string   `json:"title"`
	Period       string   `json:"period"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
}

// DimensionScores holds the six per-dimension compatibility scores, each in
// [0,100].
type DimensionScores struct {
	TechnicalSkills int `json:"technical_skills"`
	SoftSkills      int `json:"soft_skills"`
	Experience      int `json:"experience"`
	Education       int `json:"education"`
	Location        int `json:"location"`
	Compensation    int `json:"compensation"`
}

// MatchAnalysis is the structured output of scoring mode.
type MatchAnalysis struct {
	OverallScore   int             `json:"overall_score"`
	Scores         DimensionScores `json:"dimension_scores"`
	Analysis       string          `json:"analysis"`
	Strengths      []string        `json:"strengths"`
	Gaps           []string        `json:"gaps"`
	Recommendation string          `json:"recommendation"`
	Decision       string          `json:"decision"`
}

// Usage records per-call AI accounting for audit logs and metrics.
type Usage struct {
	TokensIn  int
	TokensOut int
	Elapsed   time.Duration
}

// CandidateInput is the typed candidate side of a scoring request.
type CandidateInput struct {
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	City              string          `json:"city"`
	State             string          `json:"state"`
	CurrentPosition   string          `json:"current_position"`
	CurrentCompany    string          `json:"current_company"`
	YearsOfExperience int             `json:"years_of_experience"`
	EducationLevel    string          `json:"education_level"`
	TechnicalSkills   []string        `json:"technical_skills"`
	SoftSkills        []string        `json:"soft_skills"`
	Languages         []LanguageSkill `json:"languages"`
}

// RequisitionInput is the typed requisition side of a scoring request.
type RequisitionInput struct {
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Location        RequisitionLocation  `json:"location"`
	Salary          RequisitionSalary    `json:"salary"`
	Requirements    RequisitionRequisite `json:"requirements"`
	TechnicalSkills []string             `json:"technical_skills"`
	SoftSkills      []string             `json:"soft_skills"`
	Languages       []LanguageSkill      `json:"languages"`
}

// RequisitionLocation describes where the position sits.
type RequisitionLocation struct {
	City   string `json:"city"`
	State  string `json:"state"`
	Remote bool   `json:"remote"`
	Hybrid bool   `json:"hybrid"`
}

// RequisitionSalary is the offered range.
type RequisitionSalary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RequisitionRequisite holds the hard requirements.
type RequisitionRequisite struct {
	EducationLevel  string `json:"education_level"`
	YearsExperience int    `json:"years_experience"`
}
