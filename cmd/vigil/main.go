package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careloop/vigil/internal/archive"
	"github.com/careloop/vigil/internal/config"
	"github.com/careloop/vigil/internal/conversation"
	"github.com/careloop/vigil/internal/export"
	"github.com/careloop/vigil/internal/httpapi"
	"github.com/careloop/vigil/internal/ingest"
	"github.com/careloop/vigil/internal/observability"
	"github.com/careloop/vigil/internal/risk"
	"github.com/careloop/vigil/internal/sentiment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	stages := observability.NewStageWindow(256)

	ctx := context.Background()
	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer store.Close()

	keywords := risk.DefaultKeywords()
	if cfg.RiskKeywordsFile != "" {
		keywords, err = risk.LoadKeywords(cfg.RiskKeywordsFile)
		if err != nil {
			log.Fatalf("risk keywords load failed: %v", err)
		}
		log.Printf("risk keywords: %d phrases from %s", len(keywords), cfg.RiskKeywordsFile)
	}
	classifier := risk.NewClassifier(keywords, cfg.RiskMediumThreshold, cfg.RiskHighThreshold)

	scorer, scorerKind, err := sentiment.NewScorer(cfg.SentimentProvider, cfg.SentimentURL, cfg.SentimentTimeout, cfg.SentimentMaxRetries)
	if err != nil {
		log.Fatalf("sentiment provider init failed: %v", err)
	}
	log.Printf("sentiment provider: %s", scorerKind)

	sessions := conversation.NewManager(cfg.SessionInactivityTimeout, cfg.EscalationBuffer)

	pipeline := ingest.NewService(scorer, classifier, store, metrics, stages, ingest.Options{
		QueueSize: cfg.IngestQueueSize,
		RedactPII: cfg.RedactPII,
	})

	sessions.SetExpireHook(func(sess *conversation.Session) {
		pipeline.StopSession(sess.ID)
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	exporter := export.NewExporter(cfg.ExportDir)

	api := httpapi.New(cfg, sessions, pipeline, exporter, metrics, stages)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
