package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/visionscan/pos-backend/api/routes"
	"github.com/visionscan/pos-backend/internal/checkout"
	"github.com/visionscan/pos-backend/internal/detection"
	"github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/config"
	"github.com/visionscan/pos-backend/pkg/db"
	"github.com/visionscan/pos-backend/pkg/logger"
	"github.com/visionscan/pos-backend/pkg/metrics"
	"github.com/visionscan/pos-backend/pkg/migrate"
	"github.com/visionscan/pos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	posMetrics := metrics.NewPOSMetrics(prometheus.DefaultRegisterer)

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	sessionRepo := sessions.NewRepository(dbClient.DB())

	inventoryService, err := inventory.NewService(dbClient, inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	sessionService, err := sessions.NewService(sessionRepo, inventoryRepo, cfg.Matching.FuzzyThreshold, posMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, sessionRepo, inventoryRepo, posMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ollamaClient := detection.NewOllamaClient(
		detection.WithBaseURL(cfg.Ollama.Endpoint),
		detection.WithModel(cfg.Ollama.Model),
		detection.WithTimeout(cfg.Ollama.Timeout),
	)
	detectionService, err := detection.NewService(ollamaClient, sessionRepo, inventoryRepo, cfg.Matching.FuzzyThreshold, posMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create detection service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionService,
			detectionService,
			checkoutService,
			inventoryService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
