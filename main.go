package main

import (
	"github.com/skipperr254/passai-backend/config"
	"github.com/skipperr254/passai-backend/database"
	"github.com/skipperr254/passai-backend/events"
	"github.com/skipperr254/passai-backend/extractor"
	"github.com/skipperr254/passai-backend/handler"
	"github.com/skipperr254/passai-backend/middleware"
	"github.com/skipperr254/passai-backend/models"
	"github.com/skipperr254/passai-backend/pkg/metrics"
	"github.com/skipperr254/passai-backend/repository"
	"github.com/skipperr254/passai-backend/router"
	"github.com/skipperr254/passai-backend/service"
	"github.com/skipperr254/passai-backend/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	metrics.StartMetricsServer(cfg.Server.MetricsPort)
	logger.Infof("metrics server listening on :%s", cfg.Server.MetricsPort)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	if err := db.AutoMigrate(&models.Material{}); err != nil {
		logger.Fatalf("auto migrate failed: %v", err)
	}

	repo := repository.NewMaterialRepository(db)

	store, err := storage.NewMinioStore(cfg.MinIO)
	if err != nil {
		logger.Fatalf("object store: %v", err)
	}

	extractors := extractor.NewSet(extractor.NewOCRClient(cfg.OCR))

	var publisher events.Publisher
	if kp := events.NewKafkaPublisher(cfg.Kafka); kp != nil {
		publisher = kp
		defer kp.Close()
	} else {
		logger.Warn("kafka publisher disabled (no brokers configured)")
	}

	materials := service.NewMaterialService(repo, store, extractors, publisher, logger)
	materialHandler := handler.NewMaterialHandler(materials, logger)
	validator := middleware.NewTokenValidator(cfg.Auth.JWTSecret)

	r := router.Setup(materialHandler, validator)
	logger.Infof("material service listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
