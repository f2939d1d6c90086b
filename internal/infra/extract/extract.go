// Package extract turns uploaded report documents into plain text. PDFs run
// through a primary parser with a secondary fallback. Images are not handled
// here at all; their bytes go straight to the vision path of the AI client.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/domain/proclog"
)

// MaxPages caps how many PDF pages are processed, bounding latency on
// pathological documents.
const MaxPages = 50

var (
	// ErrUnsupportedType is returned for MIME types the extractor cannot
	// turn into text.
	ErrUnsupportedType = errors.New("extract: unsupported document type")
	// ErrInvalidEncoding is returned for text input that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("extract: document is not valid UTF-8 text")
	// ErrNoText is returned when every parsing strategy yielded only
	// whitespace.
	ErrNoText = errors.New("extract: no text could be extracted")
)

// Extraction is the output of a successful text extraction.
type Extraction struct {
	Text      string
	PageCount int
}

// PDFParser is one strategy for pulling text out of PDF bytes.
type PDFParser interface {
	Parse(data []byte, maxPages int) (Extraction, error)
}

// Extractor extracts plain text from uploaded documents. Every attempt is
// appended to the processing log; log failures never abort extraction.
type Extractor struct {
	primary  PDFParser
	fallback PDFParser
	logs     proclog.Repository
	logger   *zap.Logger
	maxPages int
}

// New creates an Extractor with the default parser pair.
func New(logs proclog.Repository, logger *zap.Logger) *Extractor {
	return &Extractor{
		primary:  &ledongthucParser{},
		fallback: &dslipakParser{},
		logs:     logs,
		logger:   logger,
		maxPages: MaxPages,
	}
}

// NewWithParsers creates an Extractor with explicit parser strategies.
func NewWithParsers(primary, fallback PDFParser, logs proclog.Repository, logger *zap.Logger) *Extractor {
	return &Extractor{
		primary:  primary,
		fallback: fallback,
		logs:     logs,
		logger:   logger,
		maxPages: MaxPages,
	}
}

// Extract produces plain text from document bytes. analysisID is recorded in
// the processing log for later inspection.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType, analysisID string) (Extraction, error) {
	procID := uuid.New().String()
	e.log(ctx, procID, analysisID, "start", "ok", mimeType)

	switch normalizeMime(mimeType) {
	case "text/plain":
		if !utf8.Valid(data) {
			e.log(ctx, procID, analysisID, "done", "failed", ErrInvalidEncoding.Error())
			return Extraction{}, ErrInvalidEncoding
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			e.log(ctx, procID, analysisID, "done", "failed", ErrNoText.Error())
			return Extraction{}, ErrNoText
		}
		e.log(ctx, procID, analysisID, "done", "ok", "")
		return Extraction{Text: text, PageCount: 1}, nil

	case "application/pdf":
		return e.extractPDF(ctx, procID, analysisID, data)

	default:
		e.log(ctx, procID, analysisID, "done", "failed", "unsupported type "+mimeType)
		return Extraction{}, ErrUnsupportedType
	}
}

func (e *Extractor) extractPDF(ctx context.Context, procID, analysisID string, data []byte) (Extraction, error) {
	res, primaryErr := e.primary.Parse(data, e.maxPages)
	if primaryErr == nil && strings.TrimSpace(res.Text) != "" {
		e.log(ctx, procID, analysisID, "primary", "ok", "")
		e.log(ctx, procID, analysisID, "done", "ok", "")
		return res, nil
	}
	if primaryErr == nil {
		primaryErr = ErrNoText
	}
	e.log(ctx, procID, analysisID, "primary", "failed", primaryErr.Error())

	res, fallbackErr := e.fallback.Parse(data, e.maxPages)
	if fallbackErr == nil && strings.TrimSpace(res.Text) != "" {
		e.log(ctx, procID, analysisID, "fallback", "ok", "")
		e.log(ctx, procID, analysisID, "done", "ok", "")
		return res, nil
	}
	if fallbackErr == nil {
		fallbackErr = ErrNoText
	}
	e.log(ctx, procID, analysisID, "fallback", "failed", fallbackErr.Error())
	e.log(ctx, procID, analysisID, "done", "failed", fallbackErr.Error())

	return Extraction{}, eris.Wrap(fallbackErr, "extract: pdf extraction failed on both parsers")
}

func (e *Extractor) log(ctx context.Context, procID, analysisID, stage, status, message string) {
	if e.logs == nil {
		return
	}
	err := e.logs.Append(ctx, &proclog.Entry{
		ProcessingID: procID,
		AnalysisID:   analysisID,
		Stage:        stage,
		Status:       status,
		Message:      message,
		CreatedAt:    time.Now(),
	})
	if err != nil && e.logger != nil {
		e.logger.Warn("processing log append failed",
			zap.String("processing_id", procID),
			zap.String("stage", stage),
			zap.Error(err))
	}
}

func normalizeMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
