package domain

// Repositories (ports)

// CandidateRepository persists candidates and their documents. Lookups are
// read-only; UpsertWithDocument is the single mutating entry point and must
// be atomic: candidate create-or-merge plus document insert commit together
// or not at all.
type CandidateRepository interface {
	// FindByEmail matches case-insensitively. ErrNotFound when absent.
	FindByEmail(ctx Context, email string) (Candidate, error)
	// SearchByName matches first name exactly (case-insensitive) and last
	// name by containment. ErrNotFound when no row qualifies.
	SearchByName(ctx Context, firstName, lastNameFragment string) (Candidate, error)
	// UpsertWithDocument creates the candidate when existingID is empty,
	// otherwise merges into the existing row under a row lock. The returned
	// bool reports created (true) vs merged (false).
	UpsertWithDocument(ctx Context, existingID string, c Candidate, d CVDocument) (Candidate, bool, error)
}

// MatchRepository stores compatibility results, replacing any prior row for
// the same (candidate, requisition) pair.
type MatchRepository interface {
	Upsert(ctx Context, m MatchResult) error
}

// RequisitionRepository is the read-only view onto requisitions owned by the
// out-of-scope CRUD flows.
type RequisitionRepository interface {
	Get(ctx Context, id string) (Requisition, error)
}

// ApplicationRepository reads-or-creates candidate↔requisition associations
// and updates their headline score, nothing else.
type ApplicationRepository interface {
	GetOrCreate(ctx Context, candidateID, requisitionID string) (Application, error)
	UpdateMatchScore(ctx Context, id string, score int) error
}

// BatchRepository tracks asynchronous batch handles and their reports.
type BatchRepository interface {
	Create(ctx Context, b Batch) (string, error)
	UpdateStatus(ctx Context, id string, status BatchStatus, errMsg *string) error
	SaveReport(ctx Context, id string, report BatchReport) error
	Get(ctx Context, id string) (Batch, error)
}

// Queue (port) — the task executor for the asynchronous path. Retry and
// backoff policy belongs to the executor configuration, not to the pipeline.
type Queue interface {
	EnqueueBatch(ctx Context, payload BatchTaskPayload) (string, error)
}

// Analyzer (port) — the AI analysis capability in its two modes. Errors are
// classified: ErrAnalysisUnavailable is transient, ErrMalformedAnalysis is
// permanent for the given input.
type Analyzer interface {
	ParseCV(ctx Context, cvText string) (CVProfile, Usage, error)
	ScoreMatch(ctx Context, cand CandidateInput, req RequisitionInput) (MatchAnalysis, Usage, error)
}

// ChatClient is the raw structured-completion envelope the Analyzer builds
// on. Implementations own transport-level retry.
type ChatClient interface {
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TextExtractor converts a binary document into plain text.
// ErrUnsupportedFormat for anything that is not PDF/DOCX,
// ErrExtractionFailed for corrupt content.
type TextExtractor interface {
	Extract(ctx Context, filename string, data []byte) (string, error)
}

// ReportCache is a read-through cache for terminal batch reports so status
// polling does not hit the database on every request.
type ReportCache interface {
	SetReport(ctx Context, batchID string, r BatchReport) error
	// GetReport returns ok=false on a miss; cache errors are also misses.
	GetReport(ctx Context, batchID string) (BatchReport, bool, error)
}
