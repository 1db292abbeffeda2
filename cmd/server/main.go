package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dailymind-api/internal/api"
	"dailymind-api/internal/config"
	"dailymind-api/internal/database"
	"dailymind-api/internal/services"
	"dailymind-api/internal/storage"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	// Audio blob store
	store, err := storage.NewLocalStore(config.AppConfig.AudioDir)
	if err != nil {
		log.Fatal("Failed to initialize audio storage:", err)
	}

	// Subscription verification stack
	apple := services.NewAppleVerifier()
	google := services.NewGoogleVerifier()
	poller := services.NewPoller(database.DB, apple, google,
		config.AppConfig.PollInterval, config.AppConfig.RetryInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Start(ctx)

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.Dependencies{
		Poller: poller,
		Apple:  apple,
		Google: google,
		Speech: services.NewSpeechService(nil, store),
		Store:  store,
	})

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}
}
