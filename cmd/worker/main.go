// Package main provides the entry point for the exam-prep worker service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/observability"
	"examprep/internal/services"
	"examprep/internal/version"
	"examprep/internal/worker"

	"github.com/gin-gonic/gin"
)

// fatalIfErr logs the error with context and panics with a consistent message
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	panic(msg + ": " + err.Error())
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "examprep-worker")
	if err != nil {
		panic("Failed to initialize observability: " + err.Error())
	}
	defer func() {
		if tp != nil {
			if err := observability.ShutdownTracerProvider(context.TODO(), tp); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	logger.Info(ctx, "Starting exam-prep worker service", map[string]interface{}{
		"port":     cfg.Server.WorkerPort,
		"logLevel": cfg.Server.LogLevel,
		"debug":    cfg.Server.Debug,
	})

	// Initialize database manager with logger
	dbManager := database.NewManager(logger)

	// Connect without running migrations (migrations are managed by the server)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to initialize database", err, map[string]interface{}{"db_url": cfg.Database.URL})
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Initialize the services the worker depends on
	userService := services.NewUserService(db, logger)
	questionService := services.NewQuestionService(db, logger)
	wrongAnswerService := services.NewWrongAnswerService(db, logger, cfg.ReviewReminder)
	classifier := services.NewClassifierService(logger)
	verifier := services.NewVerificationService(logger)
	ingestionService := services.NewIngestionService(db, logger, classifier, verifier, questionService)
	emailService := services.NewEmailService(cfg, logger, db)

	workerInstance := worker.NewWorker(userService, wrongAnswerService, ingestionService, emailService, cfg, logger, "default")

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	go workerInstance.Start(workerCtx)

	// Small status endpoint so operators can inspect and poke the worker
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worker"})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "worker",
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, workerInstance.GetStatus())
	})
	router.POST("/trigger", func(c *gin.Context) {
		workerInstance.Trigger()
		c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.WorkerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	case err := <-serverErr:
		logger.Error(ctx, "Worker status server failed", err)
	}

	workerInstance.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Error shutting down status server", map[string]interface{}{"error": err.Error()})
	}

	logger.Info(ctx, "Worker shutdown complete")
}
