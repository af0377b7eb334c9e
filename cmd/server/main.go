package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Breeganzo/RMD-Agent-Demo/internal/agent"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/api"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/auth"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/config"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/database"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/platform/notify"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/report"
	"github.com/Breeganzo/RMD-Agent-Demo/internal/screening"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// 1. Infrastructure
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(cfg.Database.Path, cfg.Database.MigrationsDir); err != nil {
		logger.WithError(err).Fatal("failed to apply migrations")
	}
	logger.Info("migrations applied")

	// 2. Clients
	reasoningClient := agent.NewClient(agent.Config{
		BaseURL: cfg.Reasoning.BaseURL,
		Model:   cfg.Reasoning.Model,
		APIKey:  cfg.Reasoning.APIKey,
		Enabled: cfg.Reasoning.Enabled,
		Timeout: cfg.Reasoning.Timeout,
	}, logger)
	assessor := agent.NewAssessor(reasoningClient)
	notifier := notify.NewClient(cfg.Alerts.WebhookURL)

	if !assessor.Enabled() {
		logger.Warn("reasoning service disabled, all assessments will use the rule-based fallback")
	}

	// 3. Services
	scoreCfg := screening.DefaultScoreConfig()
	scoreCfg.ModerateThreshold = cfg.Scoring.ModerateThreshold
	scoreCfg.HighThreshold = cfg.Scoring.HighThreshold
	scoreCfg.ConfidenceBase = cfg.Scoring.ConfidenceBase
	scoreCfg.ConfidenceSpan = cfg.Scoring.ConfidenceSpan
	scorer := screening.NewScorer(scoreCfg)

	screeningRepo := screening.NewRepository(db)
	screeningSvc := screening.NewService(screeningRepo, assessor, scorer, notifier, logger)
	reportSvc := report.NewService(screeningRepo)

	authRepo := auth.NewRepository(db)
	authSvc := auth.NewService(authRepo, logger)
	if err := authSvc.SeedDemoUsers(context.Background()); err != nil {
		logger.WithError(err).Fatal("failed to seed demo users")
	}

	apiHandler := api.NewHandler(screeningSvc, reportSvc, logger)
	authHandler := auth.NewHandler(authSvc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the demo frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler)
		api.RegisterRoutes(r, apiHandler)
	})

	logger.WithField("port", cfg.Server.Port).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
