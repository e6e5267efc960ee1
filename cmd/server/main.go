package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-ripple/internal/api"
	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/engine"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.GetLogger()

	// The engine loads dataset and model artifacts lazily, but warming it up
	// front surfaces missing artifacts at startup instead of on the first
	// request.
	eng := engine.New(cfg)
	if err := eng.Ready(); err != nil {
		log.WithError(err).Warn("Artifacts not loadable yet; serving will return 503 until they appear")
	}

	router := api.NewRouter(cfg, eng)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
