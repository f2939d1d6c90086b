package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/domain/ai"
	"github.com/bryanwahyu/creditlens/internal/domain/ailog"
	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
	"github.com/bryanwahyu/creditlens/internal/domain/notification"
	"github.com/bryanwahyu/creditlens/internal/infra/extract"
	"github.com/bryanwahyu/creditlens/internal/normalize"
)

// Clock abstraction so the pipeline is testable with a fixed time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TextExtractor is the slice of the extractor the pipeline needs.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType, analysisID string) (extract.Extraction, error)
}

// Service implements the analysis use-cases: submit, retry, read, delete.
// Safe for concurrent use.
type Service struct {
	Repo      domain.Repository
	Scores    domain.ScoreRepository
	Docs      domain.DocumentStore
	Notifs    notification.Repository
	CallLogs  ailog.Repository
	AI        ai.Client
	Extractor TextExtractor
	Logger    *zap.Logger
	Clock     Clock
}

// AnalyzeCommand carries one submitted document or raw text.
type AnalyzeCommand struct {
	UserID   string
	Data     []byte
	MimeType string
	Filename string
	Notes    string
}

// Analyze runs the full pipeline: persist a processing row, store the
// original document, extract text (images skip extraction and go to the
// vision path), call the model, normalize, and persist the terminal state.
//
// The returned Analysis reflects the in-memory outcome even when the final
// persist fails; that failure is logged, not surfaced, so a finished
// analysis is never thrown away over a storage blip.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Analysis, error) {
	now := s.Clock.Now()
	id := domain.AnalysisID(uuid.New().String())
	source := sourceFromMime(cmd.MimeType)

	a := &domain.Analysis{
		ID:        id,
		UserID:    cmd.UserID,
		Status:    domain.StatusProcessing,
		Source:    source,
		Notes:     cmd.Notes,
		CreatedAt: now,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}
	s.notify(ctx, cmd.UserID, notification.TypeInfo,
		"Analysis started", "Your credit report is being analyzed.")

	if s.Docs != nil && len(cmd.Data) > 0 && cmd.Filename != "" {
		key := fmt.Sprintf("%s/%s/%s", cmd.UserID, id, cmd.Filename)
		url, err := s.Docs.Put(ctx, key, cmd.Data, cmd.MimeType)
		if err != nil {
			s.warn("document upload failed", string(id), err)
		} else {
			a.DocumentURL = url
			if err := s.Repo.Save(ctx, a); err != nil {
				s.warn("persisting document url failed", string(id), err)
			}
		}
	}

	var aiRes ai.Result
	var aiErr error
	operation := "analyze"

	switch source {
	case domain.SourceImage:
		// Vision handles OCR and analysis in one call.
		operation = "vision"
		a.PageCount = 1
		aiRes, aiErr = s.AI.AnalyzeImage(ctx, cmd.Data, cmd.MimeType)

	default:
		ext, err := s.Extractor.Extract(ctx, cmd.Data, cmd.MimeType, string(id))
		if err != nil {
			return s.fail(ctx, a, "", err)
		}
		a.OCRText = ext.Text
		a.PageCount = ext.PageCount
		// Persist extracted text before the model call so a later retry can
		// skip extraction entirely.
		if err := s.Repo.Save(ctx, a); err != nil {
			s.warn("persisting extracted text failed", string(id), err)
		}
		aiRes, aiErr = s.AI.AnalyzeText(ctx, ext.Text)
	}

	s.logCall(ctx, cmd.UserID, string(id), operation, aiRes, aiErr)
	if aiErr != nil {
		return s.fail(ctx, a, string(ai.KindOf(aiErr)), aiErr)
	}

	return s.complete(ctx, a, aiRes.Raw)
}

// Retry re-runs a failed or completed analysis from its stored extracted
// text; a completed one gets its result overwritten on the next completion.
// Image analyses have no stored text and cannot be retried this way.
func (s *Service) Retry(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.StatusProcessing {
		return nil, fmt.Errorf("analysis %s is still processing", id)
	}
	if strings.TrimSpace(a.OCRText) == "" {
		return nil, fmt.Errorf("analysis %s has no extracted text to retry from", id)
	}

	if err := s.Repo.UpdateStatus(ctx, userID, id, domain.StatusProcessing); err != nil {
		return nil, err
	}
	a.Status = domain.StatusProcessing
	a.ErrorKind = ""
	a.ErrorMessage = ""
	s.notify(ctx, userID, notification.TypeInfo,
		"Analysis restarted", "Your credit report analysis is running again.")

	aiRes, aiErr := s.AI.AnalyzeText(ctx, a.OCRText)
	s.logCall(ctx, userID, string(id), "analyze", aiRes, aiErr)
	if aiErr != nil {
		return s.fail(ctx, a, string(ai.KindOf(aiErr)), aiErr)
	}

	return s.complete(ctx, a, aiRes.Raw)
}

// Get returns one analysis owned by the user.
func (s *Service) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	return s.Repo.Get(ctx, userID, id)
}

// List returns a page of the user's analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, userID, page, pageSize)
}

// Delete removes an analysis and every dependent row. Admin-only.
func (s *Service) Delete(ctx context.Context, id domain.AnalysisID) error {
	return s.Repo.Delete(ctx, id)
}

// ScoreHistory returns the user's recorded scores, newest first.
func (s *Service) ScoreHistory(ctx context.Context, userID string, limit int) ([]*domain.CreditScore, error) {
	return s.Scores.History(ctx, userID, limit)
}

// complete normalizes the raw model output and persists the terminal
// completed state. Persist failures are logged and the in-memory result is
// still returned.
func (s *Service) complete(ctx context.Context, a *domain.Analysis, raw string) (*domain.Analysis, error) {
	norm := normalize.Normalize(raw)
	completedAt := s.Clock.Now()

	a.Status = domain.StatusCompleted
	a.Result = norm.Result
	a.ErrorKind = ""
	a.ErrorMessage = ""
	a.CompletedAt = &completedAt

	if norm.Outcome == normalize.OutcomeFallback && s.Logger != nil {
		s.Logger.Warn("model output unusable, returning fallback result",
			zap.String("analysis_id", string(a.ID)))
	}

	if err := s.Repo.MarkCompleted(ctx, a.UserID, a.ID, norm.Result, completedAt); err != nil {
		s.warn("persisting completed analysis failed", string(a.ID), err)
	}
	s.notify(ctx, a.UserID, notification.TypeSuccess,
		"Analysis completed", "Your credit report analysis is ready.")

	if norm.Result.Overview.Score != nil {
		err := s.Scores.Record(ctx, &domain.CreditScore{
			UserID:     a.UserID,
			AnalysisID: string(a.ID),
			Score:      *norm.Result.Overview.Score,
			RecordedAt: completedAt,
		})
		if err != nil {
			s.warn("recording credit score failed", string(a.ID), err)
		}
	}
	return a, nil
}

// fail persists the terminal error state and emits the error notification.
// The caused error is returned so handlers can map it to a status code.
func (s *Service) fail(ctx context.Context, a *domain.Analysis, kind string, cause error) (*domain.Analysis, error) {
	a.Status = domain.StatusError
	a.ErrorKind = kind
	a.ErrorMessage = cause.Error()
	completedAt := s.Clock.Now()
	a.CompletedAt = &completedAt

	if err := s.Repo.MarkError(ctx, a.UserID, a.ID, kind, cause.Error()); err != nil {
		s.warn("persisting failed analysis failed", string(a.ID), err)
	}
	s.notify(ctx, a.UserID, notification.TypeError,
		"Analysis failed", "We could not analyze your credit report. You can retry from the analysis page.")
	return a, cause
}

func (s *Service) notify(ctx context.Context, userID string, typ notification.Type, title, message string) {
	if s.Notifs == nil {
		return
	}
	err := s.Notifs.Save(ctx, &notification.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: s.Clock.Now(),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("saving notification failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) logCall(ctx context.Context, userID, analysisID, operation string, res ai.Result, callErr error) {
	if s.CallLogs == nil {
		return
	}
	l := &ailog.CallLog{
		UserID:           userID,
		AnalysisID:       analysisID,
		Operation:        operation,
		Model:            res.Metrics.Model,
		LatencyMS:        res.Metrics.LatencyMS,
		PromptTokens:     res.Metrics.PromptTokens,
		CompletionTokens: res.Metrics.CompletionTokens,
		Attempts:         res.Metrics.Attempts,
		CreatedAt:        s.Clock.Now(),
	}
	if callErr != nil {
		l.ErrorKind = string(ai.KindOf(callErr))
	}
	if err := s.CallLogs.Save(ctx, l); err != nil {
		s.warn("saving ai call log failed", analysisID, err)
	}
}

func (s *Service) warn(msg, analysisID string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, zap.String("analysis_id", analysisID), zap.Error(err))
}

func sourceFromMime(mimeType string) domain.Source {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return domain.SourceImage
	case mt == "application/pdf":
		return domain.SourcePDF
	default:
		return domain.SourceText
	}
}
