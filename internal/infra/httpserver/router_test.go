package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/creditlens/internal/application/analysis"
	appbilling "github.com/bryanwahyu/creditlens/internal/application/billing"
	appchat "github.com/bryanwahyu/creditlens/internal/application/chat"
	"github.com/bryanwahyu/creditlens/internal/cache"
	"github.com/bryanwahyu/creditlens/internal/domain/ai"
	"github.com/bryanwahyu/creditlens/internal/domain/ailog"
	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
	dombilling "github.com/bryanwahyu/creditlens/internal/domain/billing"
	domchat "github.com/bryanwahyu/creditlens/internal/domain/chat"
	"github.com/bryanwahyu/creditlens/internal/domain/notification"
	"github.com/bryanwahyu/creditlens/internal/domain/proclog"
	"github.com/bryanwahyu/creditlens/internal/infra/extract"
)

const (
	testJWTSecret     = "jwt-secret"
	testAdminSecret   = "admin-secret"
	testWebhookSecret = "hook-secret"
)

type memAnalyses struct {
	byID map[domain.AnalysisID]*domain.Analysis
}

func (r *memAnalyses) Save(ctx context.Context, a *domain.Analysis) error {
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAnalyses) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	a, ok := r.byID[id]
	if !ok || a.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memAnalyses) Paginate(ctx context.Context, userID string, page, pageSize int) (domain.PaginatedResult, error) {
	out := []*domain.Analysis{}
	for _, a := range r.byID {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return domain.PaginatedResult{Data: out, Page: page, PageSize: pageSize, Total: int64(len(out))}, nil
}

func (r *memAnalyses) UpdateStatus(ctx context.Context, userID string, id domain.AnalysisID, status domain.Status) error {
	if a, ok := r.byID[id]; ok {
		a.Status = status
	}
	return nil
}

func (r *memAnalyses) MarkCompleted(ctx context.Context, userID string, id domain.AnalysisID, result *domain.Result, completedAt time.Time) error {
	a, ok := r.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = domain.StatusCompleted
	a.Result = result
	a.CompletedAt = &completedAt
	return nil
}

func (r *memAnalyses) MarkError(ctx context.Context, userID string, id domain.AnalysisID, kind, message string) error {
	a, ok := r.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = domain.StatusError
	a.ErrorKind = kind
	a.ErrorMessage = message
	return nil
}

func (r *memAnalyses) Delete(ctx context.Context, id domain.AnalysisID) error {
	delete(r.byID, id)
	return nil
}

type nopScores struct{}

func (nopScores) Record(ctx context.Context, s *domain.CreditScore) error { return nil }
func (nopScores) History(ctx context.Context, userID string, limit int) ([]*domain.CreditScore, error) {
	return []*domain.CreditScore{}, nil
}

type nopNotifs struct{}

func (nopNotifs) Save(ctx context.Context, n *notification.Notification) error { return nil }
func (nopNotifs) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	return []*notification.Notification{}, nil
}
func (nopNotifs) MarkRead(ctx context.Context, userID, id string) error { return nil }

type nopProcLogs struct{}

func (nopProcLogs) Append(ctx context.Context, e *proclog.Entry) error { return nil }
func (nopProcLogs) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*proclog.Entry, error) {
	return []*proclog.Entry{}, nil
}

type nopCallLogs struct{}

func (nopCallLogs) Save(ctx context.Context, l *ailog.CallLog) error { return nil }
func (nopCallLogs) Paginate(ctx context.Context, userID string, page, pageSize int) ([]*ailog.CallLog, error) {
	return nil, nil
}

type memChats struct {
	msgs []*domchat.Message
}

func (r *memChats) Append(ctx context.Context, m *domchat.Message) error {
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *memChats) ListByAnalysis(ctx context.Context, userID, analysisID string, limit int) ([]*domchat.Message, error) {
	return r.msgs, nil
}

type memEntitlements struct {
	byUser map[string]*dombilling.Entitlement
}

func (r *memEntitlements) Upsert(ctx context.Context, e *dombilling.Entitlement) error {
	r.byUser[e.UserID] = e
	return nil
}

func (r *memEntitlements) Get(ctx context.Context, userID string) (*dombilling.Entitlement, error) {
	if e, ok := r.byUser[userID]; ok {
		return e, nil
	}
	return &dombilling.Entitlement{UserID: userID}, nil
}

type stubAI struct {
	raw string
	err error
}

func (s *stubAI) AnalyzeText(ctx context.Context, text string) (ai.Result, error) {
	if s.err != nil {
		return ai.Result{}, s.err
	}
	return ai.Result{Raw: s.raw, Metrics: ai.Metrics{Attempts: 1}}, nil
}

func (s *stubAI) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (ai.Result, error) {
	return s.AnalyzeText(ctx, "")
}

func (s *stubAI) Chat(ctx context.Context, resultJSON, question string) (ai.Result, error) {
	return s.AnalyzeText(ctx, question)
}

type testEnv struct {
	handler      http.Handler
	analyses     *memAnalyses
	entitlements *memEntitlements
	ai           *stubAI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	analyses := &memAnalyses{byID: make(map[domain.AnalysisID]*domain.Analysis)}
	entitlements := &memEntitlements{byUser: make(map[string]*dombilling.Entitlement)}
	stub := &stubAI{raw: `{"overview": {"score": 700, "summary": "ok"}}`}
	responseCache := cache.NewMemory(10, time.Minute)

	analysisSvc := &appanalysis.Service{
		Repo:      analyses,
		Scores:    nopScores{},
		Notifs:    nopNotifs{},
		CallLogs:  nopCallLogs{},
		AI:        stub,
		Extractor: extract.NewWithParsers(nil, nil, nopProcLogs{}, logger),
		Logger:    logger,
		Clock:     appanalysis.SystemClock{},
	}
	chatSvc := &appchat.Service{
		Repo:     &memChats{},
		Analyses: analyses,
		CallLogs: nopCallLogs{},
		AI:       stub,
		Cache:    responseCache,
		Logger:   logger,
		Clock:    appchat.SystemClock{},
	}
	billingSvc := &appbilling.Service{
		Repo:   entitlements,
		Notifs: nopNotifs{},
		Logger: logger,
		Clock:  appbilling.SystemClock{},
	}

	handler := NewRouter(Config{
		JWTSecret:         testJWTSecret,
		AdminSecret:       testAdminSecret,
		WebhookSecret:     testWebhookSecret,
		RateLimitCapacity: 100,
		RateLimitRefill:   100,
	}, Deps{
		Analyses: analysisSvc,
		Chat:     chatSvc,
		Billing:  billingSvc,
		Notifs:   nopNotifs{},
		ProcLogs: nopProcLogs{},
		Cache:    responseCache,
		Logger:   logger,
	}, nil)

	return &testEnv{handler: handler, analyses: analyses, entitlements: entitlements, ai: stub}
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/v1/analyze"},
		{http.MethodGet, "/v1/analyses"},
		{http.MethodPost, "/v1/chat"},
		{http.MethodGet, "/v1/notifications"},
		{http.MethodGet, "/v1/scores"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestAnalyzeTextHappyPath(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]string{"text": "my credit report text"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success    bool   `json:"success"`
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
		Result     struct {
			Overview struct {
				Score *int `json:"score"`
			} `json:"overview"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.Result.Overview.Score)
	assert.Equal(t, 700, *resp.Result.Overview.Score)
}

func TestAnalyzeEmptyTextRejected(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]string{"text": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeUpstreamTimeoutMapped(t *testing.T) {
	env := newTestEnv(t)
	env.ai.err = ai.NewError(ai.KindTimeout, context.DeadlineExceeded)

	body, _ := json.Marshal(map[string]string{"text": "report"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, string(ai.KindTimeout), resp["kind"])
	assert.NotEmpty(t, resp["analysis_id"])
}

func TestGetProcessingShape(t *testing.T) {
	env := newTestEnv(t)
	id := domain.AnalysisID("123e4567-e89b-42d3-a456-426614174000")
	env.analyses.byID[id] = &domain.Analysis{
		ID:        id,
		UserID:    "user-1",
		Status:    domain.StatusProcessing,
		Source:    domain.SourcePDF,
		CreatedAt: time.Now(),
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+string(id), nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	_, hasResult := resp["result"]
	assert.False(t, hasResult, "no result while processing")
}

func TestGetOtherUsersAnalysisHidden(t *testing.T) {
	env := newTestEnv(t)
	id := domain.AnalysisID("123e4567-e89b-42d3-a456-426614174000")
	env.analyses.byID[id] = &domain.Analysis{ID: id, UserID: "owner", Status: domain.StatusCompleted}

	req := httptest.NewRequest(http.MethodGet, "/v1/analyses/"+string(id), nil)
	req.Header.Set("Authorization", bearer(t, "intruder"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatOnCompletedAnalysis(t *testing.T) {
	env := newTestEnv(t)
	score := 700
	id := domain.AnalysisID("123e4567-e89b-42d3-a456-426614174000")
	env.analyses.byID[id] = &domain.Analysis{
		ID:     id,
		UserID: "user-1",
		Status: domain.StatusCompleted,
		Result: &domain.Result{Overview: domain.Overview{Score: &score, Summary: "ok"}},
	}
	env.ai.raw = "Your utilization is the biggest factor."

	ask := func() map[string]any {
		body, _ := json.Marshal(map[string]string{
			"analysis_id": string(id),
			"message":     "what hurts my score?",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
		req.Header.Set("Authorization", bearer(t, "user-1"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := ask()
	assert.Equal(t, "Your utilization is the biggest factor.", first["response"])
	assert.Equal(t, false, first["cached"])

	second := ask()
	assert.Equal(t, first["response"], second["response"])
	assert.Equal(t, true, second["cached"])
}

func TestWebhookFlipsEntitlement(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]any{
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource":   map[string]string{"id": "ORDER-9", "custom_id": "user-7"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paypal", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e := env.entitlements.byUser["user-7"]
	require.NotNil(t, e)
	assert.True(t, e.Premium)
	assert.Equal(t, "ORDER-9", e.OrderID)
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paypal", bytes.NewReader([]byte("{}")))
	req.Header.Set("X-Webhook-Secret", "wrong")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.entitlements.byUser)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(map[string]any{
		"event_type": "PAYMENT.CAPTURE.DENIED",
		"resource":   map[string]string{"id": "ORDER-9", "custom_id": "user-7"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paypal", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Secret", testWebhookSecret)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.entitlements.byUser)
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(t)
	id := domain.AnalysisID("123e4567-e89b-42d3-a456-426614174000")
	env.analyses.byID[id] = &domain.Analysis{ID: id, UserID: "user-1", Status: domain.StatusCompleted}

	t.Run("without secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/admin/analyses/"+string(id), nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("with secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/admin/analyses/"+string(id), nil)
		req.Header.Set("X-Admin-Secret", testAdminSecret)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, env.analyses.byID)
	})
}

func TestHealthAndMetricsOpen(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var metrics map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Contains(t, metrics, "requests_total")
	assert.Contains(t, metrics, "analyses_total")
	assert.Contains(t, metrics, "cache_hits")
}
