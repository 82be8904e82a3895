package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tickcandle/models"
	"tickcandle/services"
)

// CandleController exposes the aggregation engine over HTTP.
type CandleController struct {
	agg *services.AggregationService
}

// NewCandleController builds a candle controller around agg.
func NewCandleController(agg *services.AggregationService) *CandleController {
	return &CandleController{agg: agg}
}

func slotParams(c echo.Context) (bucketSize float64, multiplier int) {
	bucketSize = 0.05
	if v := c.QueryParam("bucket_size"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			bucketSize = parsed
		}
	}
	multiplier = 1
	if v := c.QueryParam("multiplier"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			multiplier = parsed
		}
	}
	return bucketSize, multiplier
}

// GetLatestCandle returns the most recent candle for (symbol, timeframe).
func (cc *CandleController) GetLatestCandle(c echo.Context) error {
	symbol := c.Param("symbol")
	timeframe := c.Param("timeframe")
	bucketSize, multiplier := slotParams(c)

	resp, ok, err := cc.agg.LatestCandle(c.Request().Context(), symbol, timeframe, bucketSize, multiplier)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no candle for this slot yet"})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetCandleHistory returns persisted candles within a time range.
func (cc *CandleController) GetCandleHistory(c echo.Context) error {
	symbol := c.Param("symbol")
	timeframe := c.Param("timeframe")
	bucketSize, multiplier := slotParams(c)

	start, _ := strconv.ParseInt(c.QueryParam("start"), 10, 64)
	end, err := strconv.ParseInt(c.QueryParam("end"), 10, 64)
	if err != nil || end == 0 {
		end = 1 << 62
	}

	rows, err := cc.agg.History(c.Request().Context(), symbol, timeframe, bucketSize, multiplier, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   rows,
	})
}

// IngestTick accepts one tick and runs it through the aggregation engine.
func (cc *CandleController) IngestTick(c echo.Context) error {
	var req models.IngestTickRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Symbol == "" || req.Timeframe == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol and timeframe are required"})
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}

	out, processed, err := cc.agg.IngestTick(c.Request().Context(), req.ToTick(), req.Timeframe, req.BucketSize, req.Multiplier)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !processed {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "tick rejected: invalid, duplicate, or no usable volume"})
	}
	return c.JSON(http.StatusOK, models.NewCandleResponse(req.Symbol, req.Timeframe, out, true))
}

// ClearSlot drops an aggregator slot's in-memory and persisted state.
func (cc *CandleController) ClearSlot(c echo.Context) error {
	symbol := c.Param("symbol")
	timeframe := c.Param("timeframe")
	bucketSize, multiplier := slotParams(c)

	if err := cc.agg.ClearSlot(c.Request().Context(), symbol, timeframe, bucketSize, multiplier); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
