package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "mailaudit/docs"
	"mailaudit/internal/audit"
	"mailaudit/internal/config"
	"mailaudit/internal/handlers"
	"mailaudit/internal/mailer"
	"mailaudit/internal/openai"
	"mailaudit/internal/rules"
	"mailaudit/internal/server"
)

// @title Mail Audit API
// @version 1.0
// @description Audits email threads against configurable communication-quality rules.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	store := rules.NewStore(cfg.RulesPath, logger)
	if err := store.LoadFile(cfg.RulesPath); err != nil {
		if !errors.Is(err, rules.ErrRulesNotList) {
			logger.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("Failed to load audit rules")
		}
		logger.Error().Err(err).Str("path", cfg.RulesPath).Msg("Rule file is not a list, starting with no rules")
	}
	if store.Count() == 0 {
		logger.Warn().Str("path", cfg.RulesPath).Msg("No valid audit rules loaded")
	}

	responder, err := openai.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create AI client")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := audit.NewMetrics("mailaudit", registry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to register metrics")
	}

	evaluator := audit.NewEvaluator(store, responder, logger,
		audit.WithScoringMode(cfg.ScoringMode),
		audit.WithObserver(metrics),
	)
	aggregator := audit.NewAggregator(evaluator, logger)

	var notifier handlers.ReportNotifier
	if reportMailer := mailer.NewReportMailer(cfg.SendGridAPIKey, cfg.ReportSenderEmail, logger); reportMailer.Enabled() {
		notifier = reportMailer
	} else {
		logger.Info().Msg("SENDGRID_API_KEY not set, audit reports will not be emailed")
	}

	logger.Info().
		Str("provider", responder.ProviderName()).
		Str("model", responder.Model()).
		Str("scoring_mode", cfg.ScoringMode).
		Int("rules", store.Count()).
		Msg("Audit engine ready")

	// Create and initialize server
	srv := server.New(cfg, store, aggregator, notifier, registry, logger)
	srv.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, 30*time.Second); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server stopped")
}
