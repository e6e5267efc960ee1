// Package api wires the HTTP surface: routing, middleware, and handler
// registration.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stitts-dev/nba-ripple/internal/api/handlers"
	"github.com/stitts-dev/nba-ripple/internal/config"
	"github.com/stitts-dev/nba-ripple/internal/engine"
	"github.com/stitts-dev/nba-ripple/pkg/logger"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg *config.Config, eng *engine.Engine) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	health := handlers.NewHealthHandler(eng)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	predictions := handlers.NewPredictionHandler(eng)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict/baseline", predictions.PredictBaseline)
		v1.POST("/predict/with-injuries", predictions.PredictWithInjuries)
		v1.POST("/ripple-effect", predictions.RippleEffect)
		v1.POST("/simulate-injury", predictions.SimulateInjury)
		v1.POST("/reload", predictions.Reload)
		v1.GET("/model/metadata", predictions.Metadata)
	}

	return router
}

// requestLogger tags each request with a UUID and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		entry := logger.WithRequestContext(requestID, c.Request.Method, c.Request.URL.Path)
		entry.WithField("status", c.Writer.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("Request completed")
	}
}
