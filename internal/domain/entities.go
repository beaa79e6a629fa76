// Package domain holds the core entities, ports, and error taxonomy of the
// candidate ingestion pipeline. It stays free of adapter concerns; adapters
// and usecases depend on it, never the other way around.
package domain

import (
	"context"
	"time"
)

// Context is an alias so ports stay decoupled from call sites; adapters and
// usecases pass context.Context straight through.
type Context = context.Context

// DocumentKindCV is the only kind created by this pipeline; other kinds come
// from unrelated flows.
const DocumentKindCV = "cv"

// SyntheticEmailDomain is the reserved domain for placeholder addresses
// assigned to candidates whose CV carried no extractable email. RFC 2606
// keeps .invalid unroutable, so placeholders can never collide with a real
// address.
const SyntheticEmailDomain = "ingest.invalid"

// LanguageSkill is one spoken language with its proficiency level.
type LanguageSkill struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// Candidate is a person who may apply to one or more requisitions.
// Email is the dedup key, stored lowercase and unique when present.
type Candidate struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	City              string
	State             string
	CurrentPosition   string
	CurrentCompany    string
	YearsOfExperience int
	EducationLevel    string
	Skills            []string
	SoftSkills        []string
	Languages         []LanguageSkill
	Certifications    []string
	Summary           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName joins the name parts for display and for scoring input.
func (c Candidate) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CVDocument is one submitted artifact, linked to its owning candidate.
// Immutable once stored; the pipeline never mutates it after creation.
type CVDocument struct {
	ID            string
	CandidateID   string
	Kind          string
	Filename      string
	Content       []byte
	ExtractedText string
	ParsedProfile CVProfile
	UploadedBy    string
	UploadedAt    time.Time
}

// MatchResult is one scoring of a (candidate, requisition) pair. At most one
// current row exists per pair; a new computation replaces the prior one.
type MatchResult struct {
	ID             string
	CandidateID    string
	RequisitionID  string
	OverallScore   int
	Scores         DimensionScores
	Analysis       string
	Strengths      []string
	Gaps           []string
	Recommendation string
	Decision       string
	CreatedAt      time.Time
}

// Requisition is an open position. External collaborator entity: this
// pipeline only reads it.
type Requisition struct {
	ID              string
	Title           string
	Description     string
	City            string
	State           string
	Remote          bool
	Hybrid          bool
	SalaryMin       float64
	SalaryMax       float64
	EducationLevel  string
	YearsExperience int
	TechnicalSkills []string
	SoftSkills      []string
	Languages       []LanguageSkill
}

// Application associates a candidate with a requisition. The pipeline only
// reads-or-creates it and updates the headline match percentage.
type Application struct {
	ID              string
	CandidateID     string
	RequisitionID   string
	Status          string
	MatchPercentage int
	CreatedAt       time.Time
}

// ApplicationStatusApplied is the status given to associations created by
// bulk ingestion.
const ApplicationStatusApplied = "applied"

// BatchStatus enumerates batch lifecycle states.
type BatchStatus string

const (
	BatchQueued     BatchStatus = "queued"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// Batch is the persistent handle for an asynchronous submission. The report
// is attached once the batch reaches a terminal state.
type Batch struct {
	ID            string
	Status        BatchStatus
	RequisitionID string
	Error         string
	Report        *BatchReport
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemStage names the pipeline stage an item was in, used to report where a
// failure happened.
type ItemStage string

const (
	StageReceived   ItemStage = "received"
	StageExtracting ItemStage = "extracting"
	StageAnalyzing  ItemStage = "analyzing"
	StageResolving  ItemStage = "resolving"
	StagePersisting ItemStage = "persisting"
	StageScoring    ItemStage = "scoring"
)

// ItemOutcome is the per-file result record. Ephemeral; serialized into the
// batch report but never a table of its own.
type ItemOutcome struct {
	Filename       string  `json:"filename"`
	Success        bool    `json:"success"`
	CandidateID    string  `json:"candidate_id,omitempty"`
	Created        bool    `json:"created"`
	MatchScore     *int    `json:"match_score,omitempty"`
	Error          string  `json:"error,omitempty"`
	Stage          string  `json:"stage,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// BatchReport aggregates item outcomes. Returned inline on the synchronous
// path and stored against the batch row on the asynchronous one.
type BatchReport struct {
	Total          int           `json:"total"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	Created        int           `json:"created"`
	Merged         int           `json:"merged"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	Items          []ItemOutcome `json:"items"`
}

// Add folds one item outcome into the aggregate counters.
func (r *BatchReport) Add(o ItemOutcome) {
	r.Total++
	if o.Success {
		r.Successful++
		if o.Created {
			r.Created++
		} else {
			r.Merged++
		}
	} else {
		r.Failed++
	}
	r.Items = append(r.Items, o)
}

// BatchFile is one uploaded document spooled to temporary storage.
type BatchFile struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// BatchTaskPayload is the message handed to the task executor for the
// asynchronous path.
type BatchTaskPayload struct {
	BatchID       string      `json:"batch_id"`
	RequisitionID string      `json:"requisition_id,omitempty"`
	UploadedBy    string      `json:"uploaded_by,omitempty"`
	Files         []BatchFile `json:"files"`
	// Prefailed holds items rejected before spooling (bad extension,
	// oversized). They count into the final report as failures.
	Prefailed []ItemOutcome `json:"prefailed,omitempty"`
}
