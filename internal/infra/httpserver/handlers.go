package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/creditlens/internal/application/analysis"
	domai "github.com/bryanwahyu/creditlens/internal/domain/ai"
	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
	"github.com/bryanwahyu/creditlens/internal/infra/extract"
	"github.com/bryanwahyu/creditlens/internal/middleware"
)

// POST /v1/analyze
// Multipart "file" upload or JSON {"text": "...", "notes": "..."}.
// The pipeline runs synchronously within the request.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())

	cmd := appanalysis.AnalyzeCommand{UserID: user}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		if err := req.ParseMultipartForm(middleware.MaxUploadBytes); err != nil {
			return badRequest("invalid multipart form: %v", err)
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			return badRequest("missing file field")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, middleware.MaxUploadBytes+1))
		if err != nil {
			return err
		}
		if err := middleware.ValidateUploadSize(len(data)); err != nil {
			return badRequest("%v", err)
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		if err := middleware.ValidateMimeType(mimeType); err != nil {
			return badRequest("%v", err)
		}

		cmd.Data = data
		cmd.MimeType = mimeType
		cmd.Filename = header.Filename
		cmd.Notes = middleware.SanitizeString(req.FormValue("notes"))
	} else {
		var body struct {
			Text  string `json:"text"`
			Notes string `json:"notes"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest("invalid request body: %v", err)
		}
		if strings.TrimSpace(body.Text) == "" {
			return badRequest("text is required")
		}
		cmd.Data = []byte(body.Text)
		cmd.MimeType = "text/plain"
		cmd.Notes = middleware.SanitizeString(body.Notes)
	}

	middleware.IncrementAnalyses()
	a, err := r.analyses.Analyze(req.Context(), cmd)
	return r.respondPipeline(w, a, err)
}

// POST /v1/analyses/{id}/retry
func (r *Router) handleRetry(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest("%v", err)
	}

	middleware.IncrementAnalyses()
	a, err := r.analyses.Retry(req.Context(), user, domain.AnalysisID(id))
	return r.respondPipeline(w, a, err)
}

// respondPipeline writes a pipeline outcome. A terminal error state still
// carries the analysis id so the client can retry it later.
func (r *Router) respondPipeline(w http.ResponseWriter, a *domain.Analysis, err error) error {
	if err != nil {
		middleware.IncrementAnalysesFailed()
		if a == nil {
			return err
		}
		status := statusFromKind(domai.KindOf(err))
		kind := string(domai.KindOf(err))
		if errors.Is(err, extract.ErrUnsupportedType) ||
			errors.Is(err, extract.ErrInvalidEncoding) ||
			errors.Is(err, extract.ErrNoText) {
			// A bad document is the client's problem, not an upstream one.
			status = http.StatusBadRequest
			kind = ""
		}
		return writeJSON(w, status, map[string]any{
			"success":     false,
			"analysis_id": string(a.ID),
			"status":      string(a.Status),
			"error":       a.ErrorMessage,
			"kind":        kind,
		})
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"analysis_id": string(a.ID),
		"status":      string(a.Status),
		"result":      a.Result,
	})
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest("%v", err)
	}

	a, err := r.analyses.Get(req.Context(), user, domain.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analyses.List(req.Context(), user,
		middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/chat
// Body: {"analysis_id": "...", "message": "..."}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())

	var body struct {
		AnalysisID string `json:"analysis_id"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	if err := middleware.ValidateAnalysisID(body.AnalysisID); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateQuestion(body.Message); err != nil {
		return badRequest("%v", err)
	}

	middleware.IncrementChat()
	ans, err := r.chat.Ask(req.Context(), user, body.AnalysisID, body.Message)
	if err != nil {
		return err
	}
	if ans.Cached {
		middleware.IncrementCacheHits()
	} else {
		middleware.IncrementCacheMisses()
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": ans.Content,
		"cached":   ans.Cached,
	})
}

// GET /v1/analyses/{id}/chat?limit=
func (r *Router) handleChatHistory(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.chat.History(req.Context(), user, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/notifications?unread=true&limit=
func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	unreadOnly := req.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.notifs.List(req.Context(), user, unreadOnly, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/notifications/{id}/read
func (r *Router) handleNotificationRead(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")

	if err := r.notifs.MarkRead(req.Context(), user, id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /v1/scores?limit=
func (r *Router) handleScores(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analyses.ScoreHistory(req.Context(), user, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/webhooks/paypal
// Capture-completed events flip the buyer's entitlement. custom_id carries
// our user id through the provider round-trip.
func (r *Router) handlePayPalWebhook(w http.ResponseWriter, req *http.Request) error {
	got := req.Header.Get("X-Webhook-Secret")
	if r.webhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(got), []byte(r.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret", "")
		return nil
	}

	var body struct {
		EventType string `json:"event_type"`
		Resource  struct {
			ID       string `json:"id"`
			CustomID string `json:"custom_id"`
		} `json:"resource"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid webhook body: %v", err)
	}

	if body.EventType != "PAYMENT.CAPTURE.COMPLETED" {
		return writeJSON(w, http.StatusOK, map[string]any{"ignored": true})
	}
	if body.Resource.CustomID == "" {
		return badRequest("capture event has no custom_id")
	}

	if err := r.billing.HandleCapture(req.Context(), body.Resource.CustomID, body.Resource.ID); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DELETE /v1/admin/analyses/{id}
func (r *Router) handleAdminDelete(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest("%v", err)
	}

	if err := r.analyses.Delete(req.Context(), domain.AnalysisID(id)); err != nil {
		return err
	}
	// Cached chat answers may reference the deleted analysis.
	if r.cache != nil {
		r.cache.Clear()
	}
	r.logger.Info("analysis deleted", zap.String("analysis_id", id))
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /v1/admin/logs/processing?analysis_id=&limit=
func (r *Router) handleProcessingLogs(w http.ResponseWriter, req *http.Request) error {
	analysisID := req.URL.Query().Get("analysis_id")
	if err := middleware.ValidateAnalysisID(analysisID); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.procLogs.ListByAnalysis(req.Context(), analysisID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
