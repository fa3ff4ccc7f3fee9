package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anipet/imagefinder/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		catalog := v1.Group("/catalog")
		{
			catalog.GET("", handler.CatalogStatus)
			catalog.POST("/reload", handler.ReloadCatalog)
		}

		v1.POST("/match", handler.Match)
		v1.POST("/augment", handler.Augment)
		v1.GET("/images/fullsize", handler.FullSizeImage)
	}

	return router
}
