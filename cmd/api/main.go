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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tejxv/PULSE/internal/application"
	appreports "github.com/tejxv/PULSE/internal/application/reports"
	"github.com/tejxv/PULSE/internal/application/questionnaire"
	"github.com/tejxv/PULSE/internal/config"
	"github.com/tejxv/PULSE/internal/domain/analysis"
	domreports "github.com/tejxv/PULSE/internal/domain/reports"
	openaiClient "github.com/tejxv/PULSE/internal/infra/analysis/openai"
	"github.com/tejxv/PULSE/internal/infra/analysis/pulsebackend"
	mysqlp "github.com/tejxv/PULSE/internal/infra/db/mysql"
	postgresp "github.com/tejxv/PULSE/internal/infra/db/postgres"
	sqlitep "github.com/tejxv/PULSE/internal/infra/db/sqlite"
	"github.com/tejxv/PULSE/internal/infra/httpserver"
	minioStore "github.com/tejxv/PULSE/internal/infra/storage"
	"github.com/tejxv/PULSE/internal/middleware"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal("config load error", zap.Error(err))
	}

	ctx := context.Background()

	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("database connect error", zap.Error(err))
	}
	defer db.Close()

	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Fatal("analysis backend error", zap.Error(err))
	}

	// MinIO is optional; without it attachment uploads return 503
	var store *minioStore.Store
	if cfg.Minio.Enabled {
		store, err = minioStore.New(ctx,
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
	}

	qsvc := questionnaire.NewService(repo, backend, application.SystemClock{}, logger)
	rsvc := appreports.NewService(repo, logger)

	tokens := make(map[string]middleware.Identity, len(cfg.Auth.Tokens))
	for tok, info := range cfg.Auth.Tokens {
		role := domreports.RolePatient
		if info.Role == "doctor" {
			role = domreports.RoleDoctor
		}
		tokens[tok] = middleware.Identity{UserID: info.UserID, Role: role}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.BearerAuth(tokens))
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(qsvc, rsvc, backend, store))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // analysis round-trips are slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (domreports.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return mysqlp.NewReportRepository(db), db, nil
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		return postgresp.NewReportRepository(db), db, nil
	case "sqlite":
		db, err := sqlitep.Connect(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return sqlitep.NewReportRepository(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func newBackend(cfg *config.Config, logger *zap.Logger) (analysis.Backend, error) {
	switch cfg.Analysis.Provider {
	case "backend":
		if cfg.Analysis.BaseURL == "" {
			return nil, fmt.Errorf("analysis.baseUrl is required for the backend provider")
		}
		return pulsebackend.NewClient(cfg.Analysis.BaseURL), nil
	case "openai":
		if cfg.Analysis.OpenAIKey == "" {
			return nil, fmt.Errorf("analysis.openaiApiKey is required for the openai provider")
		}
		return openaiClient.NewClient(cfg.Analysis.OpenAIKey, cfg.Analysis.OpenAIModel, logger), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Analysis.Provider)
	}
}
