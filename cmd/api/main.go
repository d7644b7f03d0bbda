package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/database"
	"github.com/Dan9191/lease-service/internal/handler"
	"github.com/Dan9191/lease-service/internal/repository"
	"github.com/Dan9191/lease-service/internal/scheduler"
	"github.com/Dan9191/lease-service/internal/service"
	"github.com/Dan9191/lease-service/internal/utils/email"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	if err := repository.CheckSchema(db); err != nil {
		logger.Fatalf("Database schema is not ready: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	reconciler, err := repository.NewReconciler(db, cfg.ReconcileProcedure)
	if err != nil {
		logger.Fatalf("Failed to initialize reconciler: %v", err)
	}
	svc := service.NewService(repo, reconciler, logger, cfg)
	svc.SetNotifier(email.NewSender(cfg, logger))
	h := handler.NewHandler(svc, cfg.Location, logger)

	sched, err := scheduler.New(svc, cfg.EngineSchedule, cfg.Location, cfg.RunTimeout, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RunTimeout + 10*time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	sched.Stop(ctx)
}
