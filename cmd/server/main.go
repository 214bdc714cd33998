// Command server runs the storyweave memory service's HTTP surface,
// composing pkg/config, the SessionRegistry, and internal/httpapi's
// router, following the teacher's cmd/api graceful-shutdown shape.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storyweave/internal/extract/llm"
	"storyweave/internal/httpapi"
	"storyweave/internal/observability"
	"storyweave/internal/session"
	"storyweave/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// No built-in LLM Provider ships with this module (spec.md's
	// Non-goals exclude external LLM client internals); enabling
	// ENABLE_LLM_EXTRACTOR without wiring a Provider here leaves every
	// session on the rule extractor, which already tolerates this.
	var provider llm.Provider

	registry := session.NewRegistry(cfg.Server.DataDir, cfg.Session, cfg.LLM, provider, metrics.RecordExtraction, logger)

	handler := httpapi.NewRouter(registry, cfg, metrics, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting server", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	for _, id := range registry.List() {
		if sess, err := registry.Get(id); err == nil {
			if err := sess.Persist(); err != nil {
				logger.Warn("failed to persist session on shutdown", zap.String("session_id", id), zap.Error(err))
			}
		}
		if err := registry.Destroy(id); err != nil {
			logger.Warn("failed to close session on shutdown", zap.String("session_id", id), zap.Error(err))
		}
	}

	logger.Info("server stopped")
}
