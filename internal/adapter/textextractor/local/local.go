// Package local extracts plain text from uploaded documents in-process via
// docconv, with MIME signature sniffing to reject mislabeled content before
// it reaches a converter.
package local

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"log/slog"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"

	"github.com/talentwire/cv-ingest/internal/domain"
	"github.com/talentwire/cv-ingest/pkg/textx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor implements domain.TextExtractor for PDF and DOCX content.
type Extractor struct{}

// New constructs a local extractor.
func New() *Extractor { return &Extractor{} }

// Extract converts data to sanitized plain text. The extension and the
// sniffed content signature must both identify a supported format; a .pdf
// that is really a zip is rejected, not converted.
func (e *Extractor) Extract(ctx domain.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime, err := allowedMIME(filename, data)
	if err != nil {
		return "", err
	}

	res, err := docconv.Convert(bytes.NewReader(data), mime, true)
	if err != nil {
		slog.Warn("document conversion failed",
			slog.String("filename", filename),
			slog.String("mime", mime),
			slog.Any("error", err))
		return "", fmt.Errorf("op=textextractor.Extract %s: %w: %v", filename, domain.ErrExtractionFailed, err)
	}

	return textx.Normalize(res.Body), nil
}

// allowedMIME validates the extension and content signature and returns the
// MIME type to hand to the converter.
func allowedMIME(filename string, data []byte) (string, error) {
	var want string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		want = mimePDF
	case ".docx":
		want = mimeDOCX
	default:
		return "", fmt.Errorf("op=textextractor.Extract %s: %w", filename, domain.ErrUnsupportedFormat)
	}

	sniffed := mimetype.Detect(data)
	if !sniffed.Is(want) {
		return "", fmt.Errorf("op=textextractor.Extract %s: %w: content is %s, extension says %s",
			filename, domain.ErrUnsupportedFormat, sniffed.String(), want)
	}
	return want, nil
}
