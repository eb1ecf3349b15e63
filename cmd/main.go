// apptrack-tracker-service
//
// Job-application tracker. Exposes a REST API used by the Gateway to
// implement:
//   - createApplication / getApplicationById / getAllApplicationsForUser
//   - updateApplicationWithStatusCalculation — milestone-date updates that
//     re-derive currentStatus (latest date wins, workflow priority breaks ties)
//   - appendEvent / timeline — the append-only event log per application
//
// Publishes EVENT_STATUS_CHANGED and EVENT_FOLLOW_UP_DUE to Redis for the
// Gateway SSE forward.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"apptrack/tracker-service/internal/application"
	"apptrack/tracker-service/internal/config"
	"apptrack/tracker-service/internal/db"
	"apptrack/tracker-service/internal/httpapi"
	"apptrack/tracker-service/internal/metrics"
	"apptrack/tracker-service/internal/reminder"
	"apptrack/tracker-service/internal/storage"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[tracker-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Register()

	// ── Storage ──────────────────────────────────────────────────────────────
	var repo application.Repository
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		slog.Info("connecting to PostgreSQL")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[tracker-service] PostgreSQL: %v", err)
		}
		defer pool.Close()
		repo = storage.NewPostgres(pool)
	case config.BackendMemory:
		slog.Warn("using in-memory storage — data is lost on restart")
		repo = storage.NewMemory()
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		slog.Info("connecting to Redis")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[tracker-service] Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		slog.Warn("REDIS_URL not set — status-change notifications disabled")
	}

	svc := application.NewService(repo, rdb)

	// ── Follow-up sweeper ────────────────────────────────────────────────────
	sweeper := reminder.New(repo, rdb, cfg.SweepIntervalHours)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("[tracker-service] Sweeper: %v", err)
	}
	defer sweeper.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	h := httpapi.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("listening", "version", version, "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[tracker-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	slog.Info("stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "tracker-service",
		"version": version,
	})
}
