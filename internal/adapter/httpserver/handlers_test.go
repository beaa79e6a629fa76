package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/cv-ingest/internal/config"
	"github.com/talentwire/cv-ingest/internal/domain"
	"github.com/talentwire/cv-ingest/internal/usecase"
)

type extractorStub struct{}

func (extractorStub) Extract(_ domain.Context, filename string, _ []byte) (string, error) {
	if strings.HasPrefix(filename, "corrupt") {
		return "", domain.ErrExtractionFailed
	}
	return strings.Repeat("curriculum vitae text ", 10), nil
}

type analyzerStub struct{}

func (analyzerStub) ParseCV(_ domain.Context, _ string) (domain.CVProfile, domain.Usage, error) {
	return domain.CVProfile{
		Personal: domain.PersonalData{FullName: "Ada Lovelace", Email: "ada@example.com"},
	}, domain.Usage{}, nil
}

func (analyzerStub) ScoreMatch(_ domain.Context, _ domain.CandidateInput, _ domain.RequisitionInput) (domain.MatchAnalysis, domain.Usage, error) {
	return domain.MatchAnalysis{}, domain.Usage{}, nil
}

type candRepoStub struct {
	mu   sync.Mutex
	byID map[string]domain.Candidate
	seq  int
}

func newCandRepoStub() *candRepoStub { return &candRepoStub{byID: map[string]domain.Candidate{}} }

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

func (r *candRepoStub) SearchByName(_ domain.Context, _, _ string) (domain.Candidate, error) {
	return domain.Candidate{}, domain.ErrNotFound
}

func (r *candRepoStub) UpsertWithDocument(_ domain.Context, existingID string, c domain.Candidate, _ domain.CVDocument) (domain.Candidate, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID != "" {
		existing := r.byID[existingID]
		merged := domain.MergeCandidate(existing, c)
		r.byID[existingID] = merged
		return merged, false, nil
	}
	r.seq++
	c.ID = fmt.Sprintf("cand-%d", r.seq)
	r.byID[c.ID] = c
	return c, true, nil
}

type batchRepoStub struct {
	mu      sync.Mutex
	batches map[string]domain.Batch
	seq     int
}

func newBatchRepoStub() *batchRepoStub { return &batchRepoStub{batches: map[string]domain.Batch{}} }

func (r *batchRepoStub) Create(_ domain.Context, b domain.Batch) (string, error) {
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
	return nil
}

func (r *batchRepoStub) SaveReport(_ domain.Context, id string, report domain.BatchReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type queueStub struct{ payloads []domain.BatchTaskPayload }

func (q *queueStub) EnqueueBatch(_ domain.Context, p domain.BatchTaskPayload) (string, error) {
	q.payloads = append(q.payloads, p)
	return p.BatchID, nil
}

func testServer(t *testing.T) (*Server, *batchRepoStub) {
	t.Helper()
	cands := newCandRepoStub()
	batches := newBatchRepoStub()
	cfg := config.Config{
		MaxUploadMB:  10,
		UploadTmpDir: t.TempDir(),
	}
	ingest := usecase.IngestService{
		Extractor:     extractorStub{},
		Analyzer:      analyzerStub{},
		Resolver:      usecase.NewResolver(cands, true),
		Candidates:    cands,
		Batches:       batches,
		Queue:         &queueStub{},
		SyncThreshold: 3,
		MinTextChars:  50,
		Concurrency:   2,
	}
	status := usecase.NewStatusService(batches, nil)
	return NewServer(cfg, ingest, status, nil, nil, nil), batches
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func Test_BatchSubmit_SyncReport(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	body, ctype := multipartBody(t, nil, map[string][]byte{"ada.pdf": []byte("%PDF-1.4 fake")})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Status string             `json:"status"`
		Report domain.BatchReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.BatchCompleted), resp.Status)
	assert.Equal(t, 1, resp.Report.Total)
	assert.Equal(t, 1, resp.Report.Successful)
	require.Len(t, resp.Report.Items, 1)
	assert.True(t, resp.Report.Items[0].Created)
}

func Test_BatchSubmit_BadExtensionBecomesFailedItem(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	body, ctype := multipartBody(t, nil, map[string][]byte{
		"ada.pdf":    []byte("%PDF-1.4 fake"),
		"virus.exe":  []byte("MZ"),
		"notes.docx": []byte("PK docx-ish"),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Report domain.BatchReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Report.Total)
	assert.Equal(t, 1, resp.Report.Failed)

	var failed *domain.ItemOutcome
	for i := range resp.Report.Items {
		if !resp.Report.Items[i].Success {
			failed = &resp.Report.Items[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "virus.exe", failed.Filename)
	assert.Equal(t, string(domain.StageReceived), failed.Stage)
}

func Test_BatchSubmit_AsyncReturnsHandle(t *testing.T) {
	t.Parallel()
	srv, batches := testServer(t)

	files := map[string][]byte{}
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("cv-%d.pdf", i)] = []byte("%PDF-1.4 fake")
	}
	body, ctype := multipartBody(t, nil, files)
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.BatchQueued), resp["status"])
	assert.NotEmpty(t, resp["id"])

	b, err := batches.Get(context.Background(), resp["id"])
	require.NoError(t, err)
	assert.Equal(t, domain.BatchQueued, b.Status)
}

func Test_BatchSubmit_NoFiles(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	body, ctype := multipartBody(t, map[string]string{"requisition_id": ""}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_BatchSubmit_BadRequisitionID(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	body, ctype := multipartBody(t, map[string]string{"requisition_id": "not-a-uuid"},
		map[string][]byte{"a.pdf": []byte("x")})
	req := httptest.NewRequest(http.MethodPost, "/v1/batches", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "requisition_id")
}

func Test_BatchSubmit_WrongContentType(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_BatchSubmit_NotAcceptable(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/batches", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.BatchSubmitHandler()(rec, req)

	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func statusRequest(srv *Server, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/v1/batches/{id}", srv.BatchStatusHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/batches/"+id, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func Test_BatchStatus_NotFound(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)
	rec := statusRequest(srv, "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_BatchStatus_CompletedWithReport(t *testing.T) {
	t.Parallel()
	srv, batches := testServer(t)
	id, err := batches.Create(context.Background(), domain.Batch{Status: domain.BatchQueued})
	require.NoError(t, err)
	require.NoError(t, batches.SaveReport(context.Background(), id, domain.BatchReport{Total: 2, Successful: 2}))
	require.NoError(t, batches.UpdateStatus(context.Background(), id, domain.BatchCompleted, nil))

	rec := statusRequest(srv, id)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID     string              `json:"id"`
		Status string              `json:"status"`
		Report *domain.BatchReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, string(domain.BatchCompleted), resp.Status)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 2, resp.Report.Total)
}

func Test_BatchStatus_FailedCarriesError(t *testing.T) {
	t.Parallel()
	srv, batches := testServer(t)
	id, err := batches.Create(context.Background(), domain.Batch{Status: domain.BatchQueued})
	require.NoError(t, err)
	msg := "enqueue failed"
	require.NoError(t, batches.UpdateStatus(context.Background(), id, domain.BatchFailed, &msg))

	rec := statusRequest(srv, id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "enqueue failed")
}

func Test_Readyz(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t)
	srv.DBCheck = func(context.Context) error { return nil }
	srv.RedisCheck = func(context.Context) error { return nil }
	srv.KafkaCheck = func(context.Context) error { return nil }

	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.DBCheck = func(context.Context) error { return errors.New("db down") }
	rec = httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}
