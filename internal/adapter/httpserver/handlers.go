package httpserver

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/talentwire/cv-ingest/internal/config"
	"github.com/talentwire/cv-ingest/internal/domain"
	"github.com/talentwire/cv-ingest/internal/usecase"
)

// maxBatchFiles caps how many documents one submission may carry.
const maxBatchFiles = 50

// Server aggregates handler dependencies.
type Server struct {
	Cfg    config.Config
	Ingest usecase.IngestService
	Status usecase.StatusService

	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, ingest usecase.IngestService, status usecase.StatusService, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Ingest: ingest, Status: status, DBCheck: dbCheck, RedisCheck: redisCheck, KafkaCheck: kafkaCheck}
}

// allowedExt enforces the upload allowlist: .pdf and .docx.
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".docx":
		return true
	}
	return false
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

func acceptsJSON(r *http.Request) bool {
	a := r.Header.Get("Accept")
	return a == "" || a == "*/*" || strings.Contains(a, "application/json")
}

// BatchSubmitHandler handles multipart submission of one or more documents.
// Per-file validation failures (extension, size) become failed items in the
// report instead of failing the whole request.
func (s *Server) BatchSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable",
				Details: map[string]any{"accept": r.Header.Get("Accept")},
			}})
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}

		perFileBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, perFileBytes*maxBatchFiles)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb_per_file": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			writeError(w, r, fmt.Errorf("%w: at least one files part required", domain.ErrInvalidArgument), map[string]string{"field": "files"})
			return
		}
		if len(headers) > maxBatchFiles {
			writeError(w, r, fmt.Errorf("%w: at most %d files per batch", domain.ErrInvalidArgument, maxBatchFiles), nil)
			return
		}

		requisitionID := strings.TrimSpace(r.FormValue("requisition_id"))
		if requisitionID != "" {
			if err := getValidator().Var(requisitionID, "uuid4"); err != nil {
				writeError(w, r, fmt.Errorf("%w: requisition_id must be a uuid", domain.ErrInvalidArgument), map[string]string{"field": "requisition_id"})
				return
			}
		}
		uploadedBy := strings.TrimSpace(r.FormValue("uploaded_by"))

		if err := os.MkdirAll(s.Cfg.UploadTmpDir, 0o755); err != nil {
			writeError(w, r, fmt.Errorf("%w: spool dir: %v", domain.ErrStorage, err), nil)
			return
		}

		var (
			files     []domain.BatchFile
			prefailed []domain.ItemOutcome
		)
		prefail := func(filename, msg string) {
			prefailed = append(prefailed, domain.ItemOutcome{
				Filename: filename,
				Stage:    string(domain.StageReceived),
				Error:    msg,
			})
		}
		for _, h := range headers {
			if !allowedExt(h.Filename) {
				prefail(h.Filename, fmt.Sprintf("%s: only .pdf and .docx are accepted", domain.ErrUnsupportedFormat))
				continue
			}
			if h.Size > perFileBytes {
				prefail(h.Filename, fmt.Sprintf("file exceeds %dMB", s.Cfg.MaxUploadMB))
				continue
			}
			path, err := spoolUpload(s.Cfg.UploadTmpDir, h)
			if err != nil {
				LoggerFrom(r).Error("spool failed", "filename", h.Filename, "error", err)
				prefail(h.Filename, "could not store upload")
				continue
			}
			files = append(files, domain.BatchFile{Path: path, Filename: h.Filename})
		}

		res, err := s.Ingest.SubmitBatch(r.Context(), requisitionID, uploadedBy, files, prefailed)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if res.Report != nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": string(res.Status), "report": res.Report})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": res.BatchID, "status": string(res.Status)})
	}
}

func spoolUpload(dir string, h *multipart.FileHeader) (string, error) {
	src, err := h.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(dir, "cv-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// BatchStatusHandler returns batch status plus the report when completed.
func (s *Server) BatchStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "not acceptable",
				Details: map[string]any{"accept": r.Header.Get("Accept")},
			}})
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		b, err := s.Status.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := map[string]any{"id": b.ID, "status": string(b.Status)}
		if b.Report != nil {
			resp["report"] = b.Report
		}
		if b.Error != "" {
			resp["error"] = b.Error
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ReadyzHandler probes the database, Redis, and Kafka.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		probe := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: name, OK: true})
			}
		}
		probe("db", s.DBCheck)
		probe("redis", s.RedisCheck)
		probe("kafka", s.KafkaCheck)

		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
