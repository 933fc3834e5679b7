// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/config"
	"github.com/fleveque/trademark-service/internal/handler"
	"github.com/fleveque/trademark-service/internal/middleware"
)

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// Dependencies are passed explicitly; each handler gets exactly what it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, c *Components, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	trademarkHandler := handler.NewTrademarkHandler(c.Service, logger)
	adminHandler := handler.NewAdminHandler(c.LLMCallRepo, logger)

	// CORS sits on the engine: gin runs group middleware only for matched
	// routes, and preflight OPTIONS requests match none.
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Public endpoints (no auth)
	r.GET("/health", healthHandler.Healthz)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(c.Metrics.Handler()))

	api := r.Group("/api/v1")

	// Every call below can fan out into model calls, so they sit behind
	// auth and the per-key limiter.
	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/marks/compare", trademarkHandler.CompareMarks)
		authed.POST("/marks/assess", trademarkHandler.AssessMarks)
		authed.POST("/goods-services/compare", trademarkHandler.CompareGoodsServices)
		authed.POST("/cases/predict", trademarkHandler.PredictCase)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
	}
}
