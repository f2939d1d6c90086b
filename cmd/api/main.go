package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/creditlens/internal/application/analysis"
	appbilling "github.com/bryanwahyu/creditlens/internal/application/billing"
	appchat "github.com/bryanwahyu/creditlens/internal/application/chat"
	"github.com/bryanwahyu/creditlens/internal/cache"
	"github.com/bryanwahyu/creditlens/internal/config"
	"github.com/bryanwahyu/creditlens/internal/domain/ailog"
	domanalysis "github.com/bryanwahyu/creditlens/internal/domain/analysis"
	dombilling "github.com/bryanwahyu/creditlens/internal/domain/billing"
	domchat "github.com/bryanwahyu/creditlens/internal/domain/chat"
	"github.com/bryanwahyu/creditlens/internal/domain/notification"
	"github.com/bryanwahyu/creditlens/internal/domain/proclog"
	aiprovider "github.com/bryanwahyu/creditlens/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/creditlens/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/creditlens/internal/infra/db/postgres"
	"github.com/bryanwahyu/creditlens/internal/infra/extract"
	"github.com/bryanwahyu/creditlens/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/creditlens/internal/infra/storage"
	"github.com/bryanwahyu/creditlens/internal/middleware"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("config load error", zap.Error(err))
	}

	ctx := context.Background()

	var (
		db           *sql.DB
		analysisRepo domanalysis.Repository
		scoreRepo    domanalysis.ScoreRepository
		chatRepo     domchat.Repository
		notifRepo    notification.Repository
		procRepo     proclog.Repository
		ailogRepo    ailog.Repository
		entRepo      dombilling.Repository
	)

	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Fatal("mysql connect error", zap.Error(err))
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		scoreRepo = mysqlp.NewScoreRepository(db)
		chatRepo = mysqlp.NewChatRepository(db)
		notifRepo = mysqlp.NewNotificationRepository(db)
		procRepo = mysqlp.NewProcessingLogRepository(db)
		ailogRepo = mysqlp.NewAICallLogRepository(db)
		entRepo = mysqlp.NewEntitlementRepository(db)
	default:
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Fatal("postgres connect error", zap.Error(err))
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
		scoreRepo = postgresp.NewScoreRepository(db)
		chatRepo = postgresp.NewChatRepository(db)
		notifRepo = postgresp.NewNotificationRepository(db)
		procRepo = postgresp.NewProcessingLogRepository(db)
		ailogRepo = postgresp.NewAICallLogRepository(db)
		entRepo = postgresp.NewEntitlementRepository(db)
	}
	defer db.Close()

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	var docStore domanalysis.DocumentStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		docStore = store
		checkers["minio"] = middleware.CheckFunc(store.Ping)
	}

	aiClient := aiprovider.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.VisionModel, logger)
	checkers["openai"] = middleware.CheckFunc(aiClient.Ping)

	responseCache := cache.NewMemory(cfg.Cache.Capacity,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	extractor := extract.New(procRepo, logger)

	analysisSvc := &appanalysis.Service{
		Repo:      analysisRepo,
		Scores:    scoreRepo,
		Docs:      docStore,
		Notifs:    notifRepo,
		CallLogs:  ailogRepo,
		AI:        aiClient,
		Extractor: extractor,
		Logger:    logger,
		Clock:     appanalysis.SystemClock{},
	}
	chatSvc := &appchat.Service{
		Repo:     chatRepo,
		Analyses: analysisRepo,
		CallLogs: ailogRepo,
		AI:       aiClient,
		Cache:    responseCache,
		Logger:   logger,
		Clock:    appchat.SystemClock{},
	}
	billingSvc := &appbilling.Service{
		Repo:   entRepo,
		Notifs: notifRepo,
		Logger: logger,
		Clock:  appbilling.SystemClock{},
	}

	handler := httpserver.NewRouter(httpserver.Config{
		JWTSecret:         cfg.Auth.JWTSecret,
		AdminSecret:       cfg.Auth.AdminSecret,
		DevMode:           cfg.Auth.DevMode,
		WebhookSecret:     cfg.PayPal.WebhookSecret,
		RateLimitCapacity: cfg.Rate.Capacity,
		RateLimitRefill:   cfg.Rate.RefillRate,
		CORSOrigins:       cfg.CORSAllowedOrigins(),
	}, httpserver.Deps{
		Analyses: analysisSvc,
		Chat:     chatSvc,
		Billing:  billingSvc,
		Notifs:   notifRepo,
		ProcLogs: procRepo,
		Cache:    responseCache,
		Logger:   logger,
	}, checkers)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Analyze runs the whole pipeline inside the request, so writes can
		// take as long as the model retry budget.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
