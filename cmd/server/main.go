package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/makanmap/internal/api"
	"github.com/iconidentify/makanmap/internal/api/handler"
	"github.com/iconidentify/makanmap/internal/app"
	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/service"
	"github.com/iconidentify/makanmap/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the environment is read")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("makanmap %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// A missing .env is normal in containers.
	envErr := godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Log, os.Stdout, "")
	logger.Info("starting makanmap",
		"version", Version,
		"build_time", BuildTime,
	)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("failed to read env file", "path", *envFile, "error", envErr)
	}

	if err := cfg.Server.Validate(); err != nil {
		logger.Error("invalid server config", "error", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	handlers := api.Handlers{
		Health:      handler.NewHealthHandler(a.Store, a.Restaurants, a.Sync, cfg.Storage.DBPath, logger),
		Sync:        handler.NewSyncHandler(a.Sync, logger),
		Restaurants: handler.NewRestaurantHandler(a.Restaurants, logger),
		Channels:    handler.NewChannelHandler(a.Channels, logger),
		Suggestions: handler.NewSuggestionHandler(a.Channels, logger),
	}
	router := api.NewRouter(handlers, cfg.Server, a.Metrics, logger)

	var scheduler *worker.Scheduler
	if cfg.Sync.Interval > 0 {
		scheduler = worker.NewScheduler(
			worker.Config{
				Interval: cfg.Sync.Interval,
				Options:  service.SyncOptions{MaxVideos: cfg.Sync.DefaultMaxVideos},
			},
			a.Sync,
			logger,
		)
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if scheduler != nil {
		if err := scheduler.Stop(20 * time.Second); err != nil {
			logger.Error("scheduler shutdown error", "error", err)
		}
	}

	// Cancels any run started over HTTP; the run is recorded as failed.
	if err := a.Close(); err != nil {
		logger.Error("close error", "error", err)
	}

	logger.Info("shutdown complete")
}
