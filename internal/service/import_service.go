package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/parser"
)

// Sentinel errors for document import.
var (
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file too large")
	ErrExtractionUnsupported = errors.New("automatic text extraction is not supported for this document")
	ErrNoQuestionsDetected   = errors.New("no questions detected")
)

// PasteGuidance tells the user how to get text out of a document we cannot read.
const PasteGuidance = "Automatic extraction can be unreliable. Please open the PDF, select the text, copy it, then paste it and parse."

// NoQuestionsHint explains what the parser looks for.
const NoQuestionsHint = `Ensure text has numbered questions (e.g., "1. ...") and options like "A. ...".`

// ImportService turns uploaded or pasted documents into questions.
type ImportService struct {
	cfg *config.Config
}

// NewImportService creates a new ImportService.
func NewImportService(cfg *config.Config) *ImportService {
	return &ImportService{cfg: cfg}
}

// Parse runs the question parser over raw text. When nothing is detected the
// (empty) report is returned together with ErrNoQuestionsDetected.
func (s *ImportService) Parse(raw string) (model.ParseReport, error) {
	report := model.NewParseReport(parser.Parse(raw))

	metrics.ParsedQuestions.WithLabelValues(string(model.QuestionTypeMCQ)).Add(float64(report.MCQ))
	metrics.ParsedQuestions.WithLabelValues(string(model.QuestionTypeWritten)).Add(float64(report.Written))
	if report.Total == 0 {
		metrics.ParseRuns.WithLabelValues("empty").Inc()
		return report, ErrNoQuestionsDetected
	}
	metrics.ParseRuns.WithLabelValues("ok").Inc()
	return report, nil
}

// Acquire reads an uploaded document and returns its raw text. Plain text is
// returned as is; PDFs yield ErrExtractionUnsupported so the client can fall
// back to pasting.
func (s *ImportService) Acquire(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	switch documentKind(header) {
	case "pdf":
		return "", ErrExtractionUnsupported
	case "text":
	default:
		return "", fmt.Errorf("%w: %s (allowed: text/plain, application/pdf)",
			ErrUnsupportedFileType, header.Header.Get("Content-Type"))
	}

	// Read one byte past the limit to catch lying size headers.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxUploadBytes)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedFileType)
	}
	return string(data), nil
}

func documentKind(header *multipart.FileHeader) string {
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	ext := strings.ToLower(filepath.Ext(header.Filename))

	switch {
	case strings.HasPrefix(contentType, "application/pdf"), ext == ".pdf":
		return "pdf"
	case strings.HasPrefix(contentType, "text/plain"), ext == ".txt":
		return "text"
	}
	return ""
}
