package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/raumania/assistant/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestLoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Questions are rate limited per client IP
	limiter := NewIPRateLimiter(cfg.RateLimit.PerIP)
	ask := RateLimitMiddleware(limiter)

	// Form route used by the storefront backend
	router.POST("/ask", ask, handler.Ask)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/assistant/ask", ask, handler.Ask)
		v1.POST("/catalog/reload", handler.ReloadCatalog)
	}

	return router
}
