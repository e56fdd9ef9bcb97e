package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "github.com/prometheus/client_golang/prometheus/promhttp"
  "github.com/smartblood-kerala/smartblood-backend/internal/handlers"
  "github.com/smartblood-kerala/smartblood-backend/internal/metrics"
  "github.com/smartblood-kerala/smartblood-backend/internal/middleware"
)

type RouterConfig struct {
  AuthMiddleware       *middleware.AuthMiddleware
  RequestHandler       *handlers.RequestHandler
  ModelsHandler        *handlers.ModelsHandler
  NotificationsHandler *handlers.NotificationsHandler
  ForecastHandler      *handlers.ForecastHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5173",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))
  router.Use(metrics.GinMiddleware())

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.GET("/metrics", gin.WrapH(promhttp.Handler()))

// ===============
// || Protected ||
// ===============
  api := router.Group("/api")
  api.Use(cfg.AuthMiddleware.RequireAuth())
  // Requests
  api.POST("/requests", cfg.RequestHandler.Create)
  api.GET("/requests", cfg.RequestHandler.ListMine)
  api.POST("/requests/:id/close", cfg.RequestHandler.Close)
  api.GET("/requests/:id/matches", cfg.RequestHandler.GetMatches)
  api.POST("/requests/:id/retry", cfg.RequestHandler.Retry)
  api.POST("/requests/:id/expand", cfg.RequestHandler.Expand)
  api.POST("/requests/:id/emergency", cfg.RequestHandler.Emergency)
  // Donor self-service
  api.GET("/me/availability", cfg.ModelsHandler.MyAvailability)
  // Notifications
  api.GET("/notifications", cfg.NotificationsHandler.List)
  api.POST("/notifications/:id/read", cfg.NotificationsHandler.MarkRead)

// ===============
// || Admin     ||
// ===============
  admin := api.Group("/")
  admin.Use(cfg.AuthMiddleware.RequireAdmin())
  admin.POST("/requests/:id/match-now", cfg.RequestHandler.MatchNow)
  admin.GET("/models", cfg.ModelsHandler.List)
  admin.POST("/models/:name/reload", cfg.ModelsHandler.Reload)
  admin.GET("/donors/:id/availability", cfg.ModelsHandler.PredictAvailability)
  admin.GET("/forecasts/:district", cfg.ForecastHandler.GetByDistrict)
  admin.GET("/jobs/:id", cfg.RequestHandler.GetJob)

  return router
}
