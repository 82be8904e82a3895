package routes

import (
	"time"

	"github.com/labstack/echo/v4"

	"tickcandle/config"
	"tickcandle/controllers"
	"tickcandle/internal/aggregator"
	"tickcandle/internal/database"
	"tickcandle/internal/middleware"
	"tickcandle/internal/wsapi"
	"tickcandle/pkg/cache"
	"tickcandle/repositories"
	"tickcandle/services"
)

// SetupRoutes wires the aggregation engine into the Echo router and returns
// the aggregation service so a background ingest feed can share the same
// persistence/broadcast path as the HTTP ingest endpoint.
func SetupRoutes(e *echo.Echo, db *database.DB, cfg *config.Config, registry *aggregator.Registry, startedAt time.Time) *services.AggregationService {
	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	candleRepo := repositories.NewCandleRepository(db)
	hub := wsapi.NewHub()
	aggService := services.NewAggregationService(registry, candleRepo, redisCache, hub)

	candleController := controllers.NewCandleController(aggService)
	healthController := controllers.NewHealthController(db)
	statsController := controllers.NewStatsController(registry, startedAt)

	e.Use(middleware.CORS(cfg))
	e.Use(middleware.RateLimit(cfg))

	v1 := e.Group("/api/v1")

	v1.GET("/health", healthController.HealthCheck)
	v1.GET("/stats", statsController.GetStats)

	v1.POST("/ingest/tick", candleController.IngestTick)

	candles := v1.Group("/candles/:symbol/:timeframe")
	candles.GET("", candleController.GetLatestCandle)
	candles.GET("/history", candleController.GetCandleHistory)
	candles.DELETE("", candleController.ClearSlot)

	v1.GET("/ws/candles", func(c echo.Context) error {
		hub.HandleWebSocket(c.Response(), c.Request())
		return nil
	})

	return aggService
}
