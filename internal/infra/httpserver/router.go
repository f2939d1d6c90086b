package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/creditlens/internal/application/analysis"
	appbilling "github.com/bryanwahyu/creditlens/internal/application/billing"
	appchat "github.com/bryanwahyu/creditlens/internal/application/chat"
	"github.com/bryanwahyu/creditlens/internal/cache"
	domai "github.com/bryanwahyu/creditlens/internal/domain/ai"
	"github.com/bryanwahyu/creditlens/internal/domain/notification"
	"github.com/bryanwahyu/creditlens/internal/domain/proclog"
	"github.com/bryanwahyu/creditlens/internal/middleware"
)

// Config carries the router's security and throttling knobs.
type Config struct {
	JWTSecret         string
	AdminSecret       string
	DevMode           bool
	WebhookSecret     string
	RateLimitCapacity int
	RateLimitRefill   int
	CORSOrigins       []string
}

type Router struct {
	analyses      *appanalysis.Service
	chat          *appchat.Service
	billing       *appbilling.Service
	notifs        notification.Repository
	procLogs      proclog.Repository
	cache         cache.ResponseCache
	logger        *zap.Logger
	webhookSecret string
}

// Deps bundles the services the router dispatches to.
type Deps struct {
	Analyses *appanalysis.Service
	Chat     *appchat.Service
	Billing  *appbilling.Service
	Notifs   notification.Repository
	ProcLogs proclog.Repository
	Cache    cache.ResponseCache
	Logger   *zap.Logger
}

func NewRouter(cfg Config, deps Deps, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{
		analyses:      deps.Analyses,
		chat:          deps.Chat,
		billing:       deps.Billing,
		notifs:        deps.Notifs,
		procLogs:      deps.ProcLogs,
		cache:         deps.Cache,
		logger:        deps.Logger,
		webhookSecret: cfg.WebhookSecret,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware(deps.Logger))
	mux.Use(middleware.MetricsMiddleware)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Admin-Secret"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		// Payment provider calls in with its own shared secret, not a JWT.
		rt.Post("/webhooks/paypal", r.wrap(r.handlePayPalWebhook))

		rt.Group(func(g chi.Router) {
			g.Use(middleware.JWTAuth(cfg.JWTSecret))
			g.Use(middleware.RateLimitMiddleware(cfg.RateLimitCapacity, cfg.RateLimitRefill))

			g.Post("/analyze", r.wrap(r.handleAnalyze))
			g.Get("/analyses", r.wrap(r.handleList))
			g.Get("/analyses/{id}", r.wrap(r.handleGet))
			g.Post("/analyses/{id}/retry", r.wrap(r.handleRetry))
			g.Get("/analyses/{id}/chat", r.wrap(r.handleChatHistory))
			g.Post("/chat", r.wrap(r.handleChat))
			g.Get("/notifications", r.wrap(r.handleNotifications))
			g.Post("/notifications/{id}/read", r.wrap(r.handleNotificationRead))
			g.Get("/scores", r.wrap(r.handleScores))
		})

		rt.Route("/admin", func(ad chi.Router) {
			ad.Use(middleware.AdminOnly(cfg.AdminSecret, cfg.DevMode))
			ad.Delete("/analyses/{id}", r.wrap(r.handleAdminDelete))
			ad.Get("/logs/processing", r.wrap(r.handleProcessingLogs))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// validationError marks client-input failures for the 400 mapping in wrap.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var ve *validationError
			if errors.As(err, &ve) {
				writeError(w, http.StatusBadRequest, ve.msg, "validation")
				return
			}
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "not found", "")
				return
			}
			var ae *domai.Error
			if errors.As(err, &ae) {
				writeError(w, statusFromKind(ae.Kind), ae.Error(), string(ae.Kind))
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error(), "")
		}
	}
}

// statusFromKind maps an upstream failure kind to the boundary status code.
func statusFromKind(kind domai.ErrorKind) int {
	switch kind {
	case domai.KindRateLimit, domai.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domai.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	body := map[string]any{"error": message}
	if kind != "" {
		body["kind"] = kind
	}
	_ = writeJSON(w, status, body)
}
