package domain

import "errors"

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")

	// ErrUnsupportedFormat marks a document whose extension or content
	// signature is neither PDF nor DOCX.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtractionFailed marks corrupt or unreadable document content.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrAnalysisUnavailable marks a transport, auth, or rate-limit failure
	// at the AI provider. Retryable with the same input.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	// ErrMalformedAnalysis marks a network-successful AI response that could
	// not be decoded into the expected structure. Permanent for this input.
	ErrMalformedAnalysis = errors.New("malformed analysis")
	// ErrInsufficientData marks a parse that yielded neither an email nor a
	// name, so identity resolution cannot proceed.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrScoringFailed marks a compatibility-scoring failure. Non-fatal to
	// the ingestion of the item.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrStorage marks a persistence failure. Fatal to the item.
	ErrStorage = errors.New("storage error")
)

// IsTransient reports whether err warrants a retry with the same input.
// Malformed analyses and format errors are permanent for the input that
// produced them; only provider unavailability is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrAnalysisUnavailable)
}
