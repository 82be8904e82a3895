package controllers

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"tickcandle/internal/aggregator"
)

// StatsController reports human-readable process statistics.
type StatsController struct {
	registry  *aggregator.Registry
	startedAt time.Time
}

// NewStatsController builds a stats controller anchored at process start.
func NewStatsController(registry *aggregator.Registry, startedAt time.Time) *StatsController {
	return &StatsController{registry: registry, startedAt: startedAt}
}

// GetStats reports active aggregator slot count and process uptime.
func (sc *StatsController) GetStats(c echo.Context) error {
	uptime := time.Since(sc.startedAt)
	return c.JSON(http.StatusOK, map[string]any{
		"active_slots":   sc.registry.SlotCount(),
		"uptime":         humanize.RelTime(sc.startedAt, time.Now(), "", ""),
		"uptime_seconds": int64(uptime.Seconds()),
		"started_at":     sc.startedAt.Format(time.RFC3339),
	})
}
