package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/cache"
	"github.com/bryanwahyu/creditlens/internal/domain/ai"
	"github.com/bryanwahyu/creditlens/internal/domain/ailog"
	analysisdomain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
	domain "github.com/bryanwahyu/creditlens/internal/domain/chat"
)

// Clock abstraction so the service is testable with a fixed time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service answers follow-up questions grounded on a completed analysis.
// Answers for a repeated question on the same analysis come from the
// ephemeral cache instead of a fresh model call.
type Service struct {
	Repo     domain.Repository
	Analyses analysisdomain.Repository
	CallLogs ailog.Repository
	AI       ai.Client
	Cache    cache.ResponseCache
	Logger   *zap.Logger
	Clock    Clock
}

// Answer is one chat turn result.
type Answer struct {
	Content string `json:"content"`
	Cached  bool   `json:"cached"`
}

// Ask stores the user question, produces an answer (cached or fresh), stores
// it as the assistant turn, and returns it.
func (s *Service) Ask(ctx context.Context, userID, analysisID, question string) (Answer, error) {
	a, err := s.Analyses.Get(ctx, userID, analysisdomain.AnalysisID(analysisID))
	if err != nil {
		return Answer{}, err
	}
	if a.Status != analysisdomain.StatusCompleted || a.Result == nil {
		return Answer{}, fmt.Errorf("analysis %s has no completed result to chat about", analysisID)
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return Answer{}, fmt.Errorf("marshal result: %w", err)
	}

	now := s.Clock.Now()
	if err := s.Repo.Append(ctx, &domain.Message{
		AnalysisID: analysisID,
		UserID:     userID,
		Role:       domain.RoleUser,
		Content:    question,
		CreatedAt:  now,
	}); err != nil {
		return Answer{}, err
	}

	key := cache.Key(analysisID, question)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(key); ok {
			s.append(ctx, userID, analysisID, cached)
			return Answer{Content: cached, Cached: true}, nil
		}
	}

	res, err := s.AI.Chat(ctx, string(resultJSON), question)
	s.logCall(ctx, userID, analysisID, res, err)
	if err != nil {
		return Answer{}, err
	}

	if s.Cache != nil {
		s.Cache.Put(key, res.Raw)
	}
	s.append(ctx, userID, analysisID, res.Raw)
	return Answer{Content: res.Raw}, nil
}

// History returns the conversation for one analysis in creation order.
func (s *Service) History(ctx context.Context, userID, analysisID string, limit int) ([]*domain.Message, error) {
	return s.Repo.ListByAnalysis(ctx, userID, analysisID, limit)
}

// append stores the assistant turn; failures are logged, not surfaced, since
// the answer is already in hand.
func (s *Service) append(ctx context.Context, userID, analysisID, content string) {
	err := s.Repo.Append(ctx, &domain.Message{
		AnalysisID: analysisID,
		UserID:     userID,
		Role:       domain.RoleAssistant,
		Content:    content,
		CreatedAt:  s.Clock.Now(),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("saving assistant message failed",
			zap.String("analysis_id", analysisID), zap.Error(err))
	}
}

func (s *Service) logCall(ctx context.Context, userID, analysisID string, res ai.Result, callErr error) {
	if s.CallLogs == nil {
		return
	}
	l := &ailog.CallLog{
		UserID:           userID,
		AnalysisID:       analysisID,
		Operation:        "chat",
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
	if err := s.CallLogs.Save(ctx, l); err != nil && s.Logger != nil {
		s.Logger.Warn("saving ai call log failed",
			zap.String("analysis_id", analysisID), zap.Error(err))
	}
}
