package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerkeeper/internal/balance"
	"ledgerkeeper/internal/config"
	"ledgerkeeper/internal/db"
	"ledgerkeeper/internal/ledger"
	"ledgerkeeper/internal/logger"
	"ledgerkeeper/internal/reconcile"
	"ledgerkeeper/internal/server"

	"github.com/redis/go-redis/v9"
)

// @title LedgerKeeper API
// @version 1.0
// @description Credit ledger and balance reconciliation service.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting LedgerKeeper application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ledgerRepo := ledger.NewRepository(database)
	balanceRepo := balance.NewRepository(database)
	locker := reconcile.NewRedisLocker(redisClient)
	service := reconcile.NewService(ledgerRepo, balanceRepo, locker)

	queue := reconcile.NewQueue(redisClient, service)
	defer queue.Close()
	logger.Info("Sweep queue initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Start(ctx)

	srv := server.New(database, cfg, service, queue)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
