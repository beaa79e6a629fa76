package usecase_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/talentwire/cv-ingest/internal/domain"
)

type extractorStub struct {
	texts map[string]string // filename -> text
	errs  map[string]error  // filename -> error
}

func (e *extractorStub) Extract(_ domain.Context, filename string, _ []byte) (string, error) {
	if err, ok := e.errs[filename]; ok {
		return "", err
	}
	if t, ok := e.texts[filename]; ok {
		return t, nil
	}
	return strings.Repeat("extracted resume text ", 10), nil
}

type analyzerStub struct {
	profile  domain.CVProfile
	parseErr error
	analysis domain.MatchAnalysis
	scoreErr error
}

func (a *analyzerStub) ParseCV(_ domain.Context, _ string) (domain.CVProfile, domain.Usage, error) {
	if a.parseErr != nil {
		return domain.CVProfile{}, domain.Usage{}, a.parseErr
	}
	return a.profile, domain.Usage{TokensIn: 100, TokensOut: 50}, nil
}

func (a *analyzerStub) ScoreMatch(_ domain.Context, _ domain.CandidateInput, _ domain.RequisitionInput) (domain.MatchAnalysis, domain.Usage, error) {
	if a.scoreErr != nil {
		return domain.MatchAnalysis{}, domain.Usage{}, a.scoreErr
	}
	return a.analysis, domain.Usage{TokensIn: 80, TokensOut: 40}, nil
}

// candRepoStub is an in-memory candidate store honoring the email unique
// constraint and the merge policy.
type candRepoStub struct {
	mu        sync.Mutex
	byID      map[string]domain.Candidate
	docs      []domain.CVDocument
	seq       int
	upsertErr error
}

func newCandRepoStub() *candRepoStub {
	return &candRepoStub{byID: map[string]domain.Candidate{}}
}

func (r *candRepoStub) FindByEmail(_ domain.Context, email string) (domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return domain.Candidate{}, domain.ErrNotFound
}

func (r *candRepoStub) SearchByName(_ domain.Context, first, lastFragment string) (domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if strings.EqualFold(c.FirstName, first) &&
			strings.Contains(strings.ToLower(c.LastName), strings.ToLower(lastFragment)) {
			return c, nil
		}
	}
	return domain.Candidate{}, domain.ErrNotFound
}

func (r *candRepoStub) UpsertWithDocument(_ domain.Context, existingID string, c domain.Candidate, d domain.CVDocument) (domain.Candidate, bool, error) {
	if r.upsertErr != nil {
		return domain.Candidate{}, false, r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID != "" {
		existing, ok := r.byID[existingID]
		if !ok {
			return domain.Candidate{}, false, domain.ErrNotFound
		}
		merged := domain.MergeCandidate(existing, c)
		r.byID[existingID] = merged
		r.docs = append(r.docs, d)
		return merged, false, nil
	}

	for id, existing := range r.byID {
		if strings.EqualFold(existing.Email, c.Email) {
			merged := domain.MergeCandidate(existing, c)
			r.byID[id] = merged
			r.docs = append(r.docs, d)
			return merged, false, nil
		}
	}

	r.seq++
	c.ID = fmt.Sprintf("cand-%d", r.seq)
	r.byID[c.ID] = c
	r.docs = append(r.docs, d)
	return c, true, nil
}

type batchRepoStub struct {
	mu       sync.Mutex
	batches  map[string]domain.Batch
	statuses []domain.BatchStatus
	reports  map[string]domain.BatchReport
	seq      int

	createErr error
	saveErr   error
}

func newBatchRepoStub() *batchRepoStub {
	return &batchRepoStub{batches: map[string]domain.Batch{}, reports: map[string]domain.BatchReport{}}
}

func (r *batchRepoStub) Create(_ domain.Context, b domain.Batch) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = fmt.Sprintf("batch-%d", r.seq)
	r.batches[b.ID] = b
	return b.ID, nil
}

func (r *batchRepoStub) UpdateStatus(_ domain.Context, id string, status domain.BatchStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.batches[id]
	b.ID = id
	b.Status = status
	if errMsg != nil {
		b.Error = *errMsg
	}
	r.batches[id] = b
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *batchRepoStub) SaveReport(_ domain.Context, id string, report domain.BatchReport) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[id] = report
	b := r.batches[id]
	b.Report = &report
	r.batches[id] = b
	return nil
}

func (r *batchRepoStub) Get(_ domain.Context, id string) (domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return domain.Batch{}, domain.ErrNotFound
	}
	return b, nil
}

type queueStub struct {
	payloads []domain.BatchTaskPayload
	err      error
}

func (q *queueStub) EnqueueBatch(_ domain.Context, p domain.BatchTaskPayload) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.payloads = append(q.payloads, p)
	return p.BatchID, nil
}

type cacheStub struct {
	mu      sync.Mutex
	reports map[string]domain.BatchReport
	getErr  error
	setErr  error
}

func newCacheStub() *cacheStub { return &cacheStub{reports: map[string]domain.BatchReport{}} }

func (c *cacheStub) SetReport(_ domain.Context, id string, r domain.BatchReport) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[id] = r
	return nil
}

func (c *cacheStub) GetReport(_ domain.Context, id string) (domain.BatchReport, bool, error) {
	if c.getErr != nil {
		return domain.BatchReport{}, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[id]
	return r, ok, nil
}

type reqRepoStub struct {
	req domain.Requisition
	err error
}

func (r *reqRepoStub) Get(_ domain.Context, _ string) (domain.Requisition, error) {
	if r.err != nil {
		return domain.Requisition{}, r.err
	}
	return r.req, nil
}

type matchRepoStub struct {
	mu       sync.Mutex
	upserted []domain.MatchResult
	err      error
}

func (m *matchRepoStub) Upsert(_ domain.Context, r domain.MatchResult) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, r)
	return nil
}

type appRepoStub struct {
	mu     sync.Mutex
	apps   map[string]domain.Application
	scores map[string]int
	err    error
}

func newAppRepoStub() *appRepoStub {
	return &appRepoStub{apps: map[string]domain.Application{}, scores: map[string]int{}}
}

func (a *appRepoStub) GetOrCreate(_ domain.Context, candidateID, requisitionID string) (domain.Application, error) {
	if a.err != nil {
		return domain.Application{}, a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := candidateID + "/" + requisitionID
	if app, ok := a.apps[key]; ok {
		return app, nil
	}
	app := domain.Application{ID: "app-" + key, CandidateID: candidateID, RequisitionID: requisitionID,
		Status: domain.ApplicationStatusApplied}
	a.apps[key] = app
	return app, nil
}

func (a *appRepoStub) UpdateMatchScore(_ domain.Context, id string, score int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scores[id] = score
	return nil
}
