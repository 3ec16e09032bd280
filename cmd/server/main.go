package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Tally/internal/api/middleware"
	"Tally/internal/api/routes"
	"Tally/internal/config"
	"Tally/internal/db/seed"
	"Tally/internal/logging"
)

const devTokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load(".env.dev", ".env")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, empty, closeStore, err := openStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	users := seed.DemoUsers()
	if empty {
		if users, err = seed.Demo(ctx, repo, time.Now()); err != nil {
			logger.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	auth := middleware.NewJWTAuth(cfg.JWTSecret, logger)
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("using the default dev JWT secret, set DEV_JWT_SECRET outside local development")
	}

	// Dev tokens so the client can be pointed at this server right away
	for _, u := range users {
		token, err := auth.IssueToken(u.ID, devTokenTTL)
		if err != nil {
			logger.Error("failed to issue dev token", "user_id", u.ID, "error", err)
			os.Exit(1)
		}
		logger.Info("dev token", "user_id", u.ID, "name", u.Name, "token", token)
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitSpan)
	r.Use(rateLimiter.Middleware)

	routes.RegisterFeedRoutes(r, repo, cfg.TrendingLimit, auth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("dev backend starting", "port", cfg.Port, "users", len(users))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("dev backend stopped")
}
