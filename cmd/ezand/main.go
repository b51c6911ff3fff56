package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"ezan-player-backend/config"
	"ezan-player-backend/internal/api"
	"ezan-player-backend/internal/db"
	"ezan-player-backend/internal/device"
	"ezan-player-backend/internal/model"
	"ezan-player-backend/internal/notification"
	"ezan-player-backend/internal/player"
	"ezan-player-backend/internal/prayer"
	"ezan-player-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "ezan-player ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB, model.Settings{
		Mode:                  model.ModeHome,
		DefaultVolume:         cfg.Audio.DefaultVolume,
		RestoreOriginalVolume: cfg.Audio.RestoreOriginalVolume,
		RestoreDelaySeconds:   cfg.Audio.RestoreDelaySeconds,
	})
	logger.Println("data store initialized")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prayerClient, err := prayer.NewClient(&cfg.Source)
	if err != nil {
		logger.Fatalf("failed to initialize prayer times client: %v", err)
	}

	controller := device.NewExecController(&cfg.Device)

	// Push is optional; the player runs without a notifier when disabled.
	var webpushOptions *webpush.Options
	var notifier player.Notifier
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			logger.Fatalf("push is enabled but VAPID keys are not configured")
		}
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		notifier = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
	}

	playerSvc, err := player.NewService(cfg, appStore, prayerClient, controller, notifier)
	if err != nil {
		logger.Fatalf("failed to initialize player service: %v", err)
	}

	// Run the player in the background; its initial fetch failing is fatal
	// since there is nothing to schedule.
	playerErr := make(chan error, 1)
	go func() {
		playerErr <- playerSvc.Run(ctx)
	}()

	// Initialize router
	router := api.NewRouter(appStore, playerSvc, webpushOptions, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-playerErr:
		if err != nil {
			logger.Fatalf("player service: %v", err)
		}
		logger.Println("Player service stopped, shutting down...")
	}

	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
