// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/talentwire/cv-ingest/internal/adapter/observability"
	"github.com/talentwire/cv-ingest/internal/domain"
)

// IngestService orchestrates batch submission and the per-item pipeline:
// extract, analyze, resolve, persist, and optionally score. An item failure
// never aborts its batch.
type IngestService struct {
	Extractor  domain.TextExtractor
	Analyzer   domain.Analyzer
	Resolver   Resolver
	Candidates domain.CandidateRepository
	Batches    domain.BatchRepository
	Queue      domain.Queue
	Cache      domain.ReportCache
	Scorer     ScoreService

	// SyncThreshold is the largest batch processed inline on the request
	// path; bigger batches go through the queue.
	SyncThreshold int
	// MinTextChars rejects documents whose extracted text is too short to
	// analyze meaningfully.
	MinTextChars int
	// Concurrency bounds the per-batch worker pool on the async path. The
	// inline path always processes sequentially.
	Concurrency int
}

// SubmitResult is what a batch submission returns: a full report on the
// inline path, a polling handle on the asynchronous one.
type SubmitResult struct {
	BatchID string
	Status  domain.BatchStatus
	Report  *domain.BatchReport
}

// SubmitBatch routes a validated submission. Batches up to SyncThreshold are
// processed before returning; larger ones get a batch row and a queue task.
// Prefailed items were rejected by upload validation and only count into
// the report.
func (s IngestService) SubmitBatch(ctx domain.Context, requisitionID, uploadedBy string, files []domain.BatchFile, prefailed []domain.ItemOutcome) (SubmitResult, error) {
	if len(files) == 0 && len(prefailed) == 0 {
		return SubmitResult{}, fmt.Errorf("%w: no files", domain.ErrInvalidArgument)
	}

	if len(files) <= s.SyncThreshold {
		observability.BatchesEnqueuedTotal.WithLabelValues("sync").Inc()
		report := s.processFiles(ctx, requisitionID, uploadedBy, files, 1)
		foldPrefailed(&report, prefailed)
		return SubmitResult{Status: domain.BatchCompleted, Report: &report}, nil
	}

	id, err := s.Batches.Create(ctx, domain.Batch{Status: domain.BatchQueued, RequisitionID: requisitionID})
	if err != nil {
		removeFiles(files)
		return SubmitResult{}, err
	}

	payload := domain.BatchTaskPayload{
		BatchID:       id,
		RequisitionID: requisitionID,
		UploadedBy:    uploadedBy,
		Files:         files,
		Prefailed:     prefailed,
	}
	if _, err := s.Queue.EnqueueBatch(ctx, payload); err != nil {
		removeFiles(files)
		msg := "enqueue failed"
		_ = s.Batches.UpdateStatus(ctx, id, domain.BatchFailed, &msg)
		return SubmitResult{}, err
	}

	observability.BatchesEnqueuedTotal.WithLabelValues("async").Inc()
	slog.Info("batch enqueued",
		slog.String("batch_id", id),
		slog.Int("files", len(files)),
		slog.String("requisition_id", requisitionID))
	return SubmitResult{BatchID: id, Status: domain.BatchQueued}, nil
}

// RunBatch executes a queued batch end to end: mark processing, run the
// items, store the report, mark completed. Called by the queue consumer.
func (s IngestService) RunBatch(ctx domain.Context, payload domain.BatchTaskPayload) error {
	observability.BatchesProcessing.Inc()
	defer observability.BatchesProcessing.Dec()

	if err := s.Batches.UpdateStatus(ctx, payload.BatchID, domain.BatchProcessing, nil); err != nil {
		return fmt.Errorf("op=ingest.RunBatch: %w", err)
	}

	report := s.processFiles(ctx, payload.RequisitionID, payload.UploadedBy, payload.Files, s.Concurrency)
	foldPrefailed(&report, payload.Prefailed)

	if err := s.Batches.SaveReport(ctx, payload.BatchID, report); err != nil {
		msg := "failed to store report"
		_ = s.Batches.UpdateStatus(ctx, payload.BatchID, domain.BatchFailed, &msg)
		observability.BatchesCompletedTotal.WithLabelValues(string(domain.BatchFailed)).Inc()
		return fmt.Errorf("op=ingest.RunBatch: %w", err)
	}
	if s.Cache != nil {
		if err := s.Cache.SetReport(ctx, payload.BatchID, report); err != nil {
			slog.Warn("report cache write failed", slog.String("batch_id", payload.BatchID), slog.Any("error", err))
		}
	}
	if err := s.Batches.UpdateStatus(ctx, payload.BatchID, domain.BatchCompleted, nil); err != nil {
		return fmt.Errorf("op=ingest.RunBatch: %w", err)
	}

	observability.BatchesCompletedTotal.WithLabelValues(string(domain.BatchCompleted)).Inc()
	slog.Info("batch completed",
		slog.String("batch_id", payload.BatchID),
		slog.Int("total", report.Total),
		slog.Int("successful", report.Successful),
		slog.Int("failed", report.Failed))
	return nil
}

// processFiles runs items through a bounded pool, folding outcomes into the
// report in submission order so reports stay deterministic.
func (s IngestService) processFiles(ctx domain.Context, requisitionID, uploadedBy string, files []domain.BatchFile, concurrency int) domain.BatchReport {
	start := time.Now()
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make([]domain.ItemOutcome, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f domain.BatchFile) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.ProcessItem(ctx, requisitionID, uploadedBy, f)
		}(i, f)
	}
	wg.Wait()

	var report domain.BatchReport
	for _, o := range outcomes {
		report.Add(o)
	}
	report.ElapsedSeconds = time.Since(start).Seconds()
	return report
}

// ProcessItem runs one document through the pipeline stages. The spooled file
// is removed regardless of outcome.
func (s IngestService) ProcessItem(ctx domain.Context, requisitionID, uploadedBy string, file domain.BatchFile) domain.ItemOutcome {
	start := time.Now()
	defer func() {
		if file.Path != "" {
			_ = os.Remove(file.Path)
		}
	}()

	fail := func(stage domain.ItemStage, err error) domain.ItemOutcome {
		elapsed := time.Since(start)
		slog.Warn("item failed",
			slog.String("filename", file.Filename),
			slog.String("stage", string(stage)),
			slog.Any("error", err))
		observability.ObserveItem(false, string(stage), elapsed)
		return domain.ItemOutcome{
			Filename:       file.Filename,
			Success:        false,
			Stage:          string(stage),
			Error:          err.Error(),
			ElapsedSeconds: elapsed.Seconds(),
		}
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return fail(domain.StageReceived, fmt.Errorf("read upload: %w", err))
	}

	text, err := s.Extractor.Extract(ctx, file.Filename, data)
	if err != nil {
		return fail(domain.StageExtracting, err)
	}
	if utf8.RuneCountInString(text) < s.MinTextChars {
		return fail(domain.StageExtracting,
			fmt.Errorf("%w: extracted text below %d characters", domain.ErrExtractionFailed, s.MinTextChars))
	}

	profile, usage, err := s.Analyzer.ParseCV(ctx, text)
	if err != nil {
		return fail(domain.StageAnalyzing, err)
	}
	slog.Debug("cv parsed",
		slog.String("filename", file.Filename),
		slog.Int("tokens_in", usage.TokensIn),
		slog.Int("tokens_out", usage.TokensOut))

	existingID, err := s.Resolver.Resolve(ctx, profile)
	if err != nil {
		return fail(domain.StageResolving, err)
	}

	cand := CandidateFromProfile(profile)
	doc := domain.CVDocument{
		Kind:          domain.DocumentKindCV,
		Filename:      file.Filename,
		Content:       data,
		ExtractedText: text,
		ParsedProfile: profile,
		UploadedBy:    uploadedBy,
	}
	saved, created, err := s.Candidates.UpsertWithDocument(ctx, existingID, cand, doc)
	if err != nil {
		return fail(domain.StagePersisting, err)
	}

	outcome := domain.ItemOutcome{
		Filename:    file.Filename,
		Success:     true,
		CandidateID: saved.ID,
		Created:     created,
	}

	if requisitionID != "" {
		score, err := s.Scorer.Score(ctx, saved, requisitionID)
		if err != nil {
			// Best-effort: the candidate is already stored, so a scoring
			// failure does not fail the item.
			slog.Warn("scoring failed",
				slog.String("filename", file.Filename),
				slog.String("candidate_id", saved.ID),
				slog.Any("error", err))
		} else if score != nil {
			outcome.MatchScore = score
		}
	}

	elapsed := time.Since(start)
	outcome.ElapsedSeconds = elapsed.Seconds()
	observability.ObserveItem(true, "", elapsed)
	return outcome
}

func foldPrefailed(report *domain.BatchReport, prefailed []domain.ItemOutcome) {
	for _, o := range prefailed {
		report.Add(o)
	}
}

func removeFiles(files []domain.BatchFile) {
	for _, f := range files {
		if f.Path != "" {
			_ = os.Remove(f.Path)
		}
	}
}
