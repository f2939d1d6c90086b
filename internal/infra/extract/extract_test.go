package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/domain/proclog"
)

type stubParser struct {
	result Extraction
	err    error
	calls  int
}

func (p *stubParser) Parse(data []byte, maxPages int) (Extraction, error) {
	p.calls++
	return p.result, p.err
}

type memLog struct {
	entries []*proclog.Entry
	fail    bool
}

func (l *memLog) Append(ctx context.Context, e *proclog.Entry) error {
	if l.fail {
		return errors.New("log store down")
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *memLog) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*proclog.Entry, error) {
	return l.entries, nil
}

func newTestExtractor(primary, fallback PDFParser, logs proclog.Repository) *Extractor {
	return NewWithParsers(primary, fallback, logs, zap.NewNop())
}

func TestExtractPlainText(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{})

	got, err := e.Extract(context.Background(), []byte("my credit report"), "text/plain", "a1")
	require.NoError(t, err)
	assert.Equal(t, "my credit report", got.Text)
	assert.Equal(t, 1, got.PageCount)
}

func TestExtractPlainTextWithCharset(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{})

	got, err := e.Extract(context.Background(), []byte("report"), "text/plain; charset=utf-8", "a1")
	require.NoError(t, err)
	assert.Equal(t, "report", got.Text)
}

func TestExtractInvalidUTF8(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{})

	_, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain", "a1")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{})

	_, err := e.Extract(context.Background(), []byte("   \n\t "), "text/plain", "a1")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractUnsupportedType(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{})

	_, err := e.Extract(context.Background(), []byte("x"), "application/zip", "a1")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPDFPrimarySucceeds(t *testing.T) {
	primary := &stubParser{result: Extraction{Text: "page text", PageCount: 3}}
	fallback := &stubParser{}
	logs := &memLog{}
	e := newTestExtractor(primary, fallback, logs)

	got, err := e.Extract(context.Background(), []byte("%PDF"), "application/pdf", "a1")
	require.NoError(t, err)
	assert.Equal(t, "page text", got.Text)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, 0, fallback.calls, "fallback untouched when primary succeeds")
}

func TestPDFWhitespacePrimaryTriggersFallback(t *testing.T) {
	primary := &stubParser{result: Extraction{Text: "  \n ", PageCount: 2}}
	fallback := &stubParser{result: Extraction{Text: "recovered text", PageCount: 2}}
	e := newTestExtractor(primary, fallback, &memLog{})

	got, err := e.Extract(context.Background(), []byte("%PDF"), "application/pdf", "a1")
	require.NoError(t, err)
	assert.Equal(t, "recovered text", got.Text)
	assert.Equal(t, 1, fallback.calls)
}

func TestPDFPrimaryErrorTriggersFallback(t *testing.T) {
	primary := &stubParser{err: errors.New("corrupt xref")}
	fallback := &stubParser{result: Extraction{Text: "recovered", PageCount: 1}}
	e := newTestExtractor(primary, fallback, &memLog{})

	got, err := e.Extract(context.Background(), []byte("%PDF"), "application/pdf", "a1")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got.Text)
}

func TestPDFBothParsersFail(t *testing.T) {
	primary := &stubParser{err: errors.New("corrupt xref")}
	fallback := &stubParser{err: errors.New("no text layer")}
	logs := &memLog{}
	e := newTestExtractor(primary, fallback, logs)

	_, err := e.Extract(context.Background(), []byte("%PDF"), "application/pdf", "a1")
	require.Error(t, err)

	var stages []string
	for _, entry := range logs.entries {
		stages = append(stages, entry.Stage+":"+entry.Status)
	}
	assert.Equal(t, []string{"start:ok", "primary:failed", "fallback:failed", "done:failed"}, stages)
}

func TestLogFailureDoesNotAbortExtraction(t *testing.T) {
	e := newTestExtractor(&stubParser{}, &stubParser{}, &memLog{fail: true})

	got, err := e.Extract(context.Background(), []byte("still works"), "text/plain", "a1")
	require.NoError(t, err)
	assert.Equal(t, "still works", got.Text)
}

func TestLogEntriesCarryAnalysisID(t *testing.T) {
	logs := &memLog{}
	e := newTestExtractor(&stubParser{}, &stubParser{}, logs)

	_, err := e.Extract(context.Background(), []byte("text"), "text/plain", "analysis-42")
	require.NoError(t, err)
	require.NotEmpty(t, logs.entries)
	for _, entry := range logs.entries {
		assert.Equal(t, "analysis-42", entry.AnalysisID)
		assert.NotEmpty(t, entry.ProcessingID)
	}
}
