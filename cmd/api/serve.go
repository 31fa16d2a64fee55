package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ocean-authoring/ocean-backend/config"
	httpapi "github.com/ocean-authoring/ocean-backend/internal/api/http"
	"github.com/ocean-authoring/ocean-backend/internal/api/http/middleware"
	"github.com/ocean-authoring/ocean-backend/internal/auth"
	authmw "github.com/ocean-authoring/ocean-backend/internal/auth/middleware"
	"github.com/ocean-authoring/ocean-backend/internal/bootstrap"
	"github.com/ocean-authoring/ocean-backend/internal/jobs"
	"github.com/ocean-authoring/ocean-backend/internal/llm"
	"github.com/ocean-authoring/ocean-backend/internal/projects/repository"
	"github.com/ocean-authoring/ocean-backend/internal/projects/service"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply the Postgres schema before serving")
}

type store interface {
	service.Repository
	httpapi.Pinger
}

func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:      cfg.Database.ConnString(),
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		if migrateOnStart {
			if err := repository.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			slog.Info("schema applied")
		}
		return repository.NewPostgresRepository(pool), pool.Close, nil
	default:
		client, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisRepository(client), func() { _ = client.Close() }, nil
	}
}

func authMiddleware(ctx context.Context, cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.Auth.Mode == config.AuthModeHeader {
		slog.Warn("AUTH_MODE=header trusts X-User-Id; do not use in production")
		return authmw.HeaderAuth(), nil
	}
	client, err := auth.InitializeFirebase(ctx, cfg.Auth.FirebaseCredentialsPath)
	if err != nil {
		return nil, err
	}
	return authmw.FirebaseAuthMiddleware(client), nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	bootstrap.SetGinMode(cfg.App.Environment)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer closeStore()
	slog.Info("connected to store", "backend", cfg.Store.Backend)

	gemini := llm.NewGeminiClient(llm.GeminiOptions{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err := gemini.Ping(); err != nil {
		slog.Warn("generator not configured; generation calls will fail", "error", err)
	}

	authMW, err := authMiddleware(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.LLM.RatePerMinute > 0 {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			PerMinute: cfg.LLM.RatePerMinute,
			Burst:     cfg.LLM.Burst,
		})
		defer limiter.Stop()
	}

	scheduler := jobs.NewScheduler()
	if err := scheduler.AddMetricsReport(cfg.App.MetricsReportSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		StoreKind:   string(cfg.Store.Backend),
		Store:       st,
		Projects:    service.NewProjectService(st, llm.Instrument(gemini)),
		Auth:        authMW,
		Limiter:     limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
