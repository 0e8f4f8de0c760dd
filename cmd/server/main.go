package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasador/server/config"
	"tasador/server/internal/api"
	"tasador/server/internal/artifact"
	"tasador/server/internal/database"
	"tasador/server/internal/geocoding"
	"tasador/server/internal/geometry"
	"tasador/server/internal/processor"
	"tasador/server/internal/queue"
	"tasador/server/internal/scheduler"
	"tasador/server/internal/valuation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := config.NewLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure logger")
	}
	gin.SetMode(cfg.Server.GinMode)

	// No estimate can be served without the artifact, so load it before accepting traffic
	loader := artifact.NewLoader(cfg.Artifact.Path, logger)
	if _, err := loader.Get(); err != nil {
		logger.WithError(err).Fatal("Failed to load model artifact")
	}

	zones, err := config.LoadZones(cfg.Zones.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load reference zones")
	}

	area := geometry.NewTrainingArea(cfg.TrainingArea.MinLat, cfg.TrainingArea.MaxLat, cfg.TrainingArea.MinLon, cfg.TrainingArea.MaxLon)
	estimator := valuation.NewEstimator(valuation.LoaderSource(loader), cfg.EstimatorOptions(area), logger)

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	estimateQueue := queue.NewEstimateQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), estimateQueue, cfg, logger)
	batchProcessor.Start()
	estimateQueue.Start()

	retention := scheduler.NewScheduler(db, cfg.History.Retention, cfg.History.PruneInterval, logger)
	retention.Start()

	deps := api.Dependencies{
		Estimator:    estimator,
		Zones:        zones,
		TrainingArea: area,
		Store:        db,
		Recorder:     estimateQueue,
		Logger:       logger,
	}
	if cfg.Geocoder.Enabled {
		geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:     cfg.Geocoder.BaseURL,
			UserAgent:   cfg.Geocoder.UserAgent,
			CountryCode: cfg.Geocoder.CountryCode,
			Locality:    cfg.Geocoder.Locality,
			CacheTTL:    cfg.Geocoder.CacheTTL,
			Timeout:     cfg.Geocoder.Timeout,
		})
		defer geocoder.Close()
		deps.Geocoder = geocoder
	}

	router := api.NewRouter(api.NewHandler(deps), cfg.Server.AllowedOrigins, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	// flush queued history before the database closes
	if err := estimateQueue.Close(); err != nil {
		logger.WithError(err).Error("Failed to close estimate queue")
	}
	batchProcessor.Stop()
	retention.Stop()

	logger.Info("Server stopped")
}
