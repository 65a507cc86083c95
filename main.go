package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tcm-diagnosis/config"
	"tcm-diagnosis/services"
	"tcm-diagnosis/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database
	db, err := storage.Open(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err), zap.String("driver", cfg.DBDriver))
	}
	logging.Info("Successfully connected to database.", zap.String("driver", cfg.DBDriver))

	store := storage.NewGormStore(db)
	logging.Info("Running database auto-migration...")
	if err := store.AutoMigrate(); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Seeding
	if cfg.SeedDemoData {
		seedDemoData(context.Background(), store, logging)
	}

	// Setup Services
	cache := services.NewModelCache(cfg.ModelCacheTTL)
	diagnosisService, err := services.NewDiagnosisService(cfg, store, cache, logging)
	if err != nil {
		logging.Fatal("Diagnosis service setup failed", zap.Error(err))
	}
	historyService := services.NewHistoryService(store, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup Routes
	setupDiagnosisRoutes(router, diagnosisService, historyService, logging)
	setupAdminRoutes(router, store, cache, logging)

	// Setup Cron
	if cfg.ExportCronSchedule != "" {
		objects, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		exporter := services.NewExportService(historyService, objects, cfg.ExportKeep, logging)

		cronScheduler := cron.New()
		_, err = cronScheduler.AddFunc(cfg.ExportCronSchedule, func() {
			logging.Info("Running scheduled statistics export...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := exporter.Run(ctx); err != nil {
				logging.Error("Cron job failed", zap.Error(err))
			}
		})
		if err != nil {
			logging.Fatal("Invalid EXPORT_CRON_SCHEDULE", zap.Error(err))
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// demoAssociations ist ein kleines Vokabular für lokale Installationen.
var demoAssociations = map[string][]string{
	"人参": {"气虚", "疲劳"},
	"黄芪": {"气虚", "自汗"},
	"甘草": {"咳嗽", "气虚"},
	"当归": {"血虚", "月经不调"},
	"川芎": {"头痛", "月经不调"},
	"麻黄": {"咳嗽", "风寒感冒"},
}

func seedDemoData(ctx context.Context, store *storage.GormStore, logger *zap.Logger) {
	herbs, err := store.ListHerbs(ctx)
	if err != nil {
		logger.Warn("Failed to check for existing herbs", zap.Error(err))
		return
	}
	if len(herbs) > 0 {
		return
	}

	var herbNames, diseaseNames []string
	for herb, diseases := range demoAssociations {
		herbNames = append(herbNames, herb)
		diseaseNames = append(diseaseNames, diseases...)
	}
	if _, err := store.CreateHerbs(ctx, herbNames); err != nil {
		logger.Warn("Failed to seed demo herbs", zap.Error(err))
		return
	}
	if _, err := store.CreateDiseases(ctx, diseaseNames); err != nil {
		logger.Warn("Failed to seed demo diseases", zap.Error(err))
		return
	}
	for herb, diseases := range demoAssociations {
		if _, err := store.Associate(ctx, herb, diseases); err != nil {
			logger.Warn("Failed to seed demo associations", zap.String("herb", herb), zap.Error(err))
			return
		}
	}
	logger.Info("Demo data seeded.", zap.Int("herbs", len(herbNames)))
}
