// Package services wires the aggregator registry to persistence and cache,
// exposing the operations the HTTP and WebSocket surfaces call.
package services

import (
	"context"
	"fmt"
	"time"

	"tickcandle/internal/aggregator"
	"tickcandle/internal/candle"
	"tickcandle/models"
	"tickcandle/pkg/cache"
	"tickcandle/repositories"
)

// Broadcaster pushes a candle update to subscribed UI clients.
// Satisfied by *wsapi.Hub; kept as an interface here to avoid services
// depending on the wsapi package's connection-handling internals.
type Broadcaster interface {
	BroadcastCandle(symbol, timeframe string, bucketSize float64, multiplier int, payload any)
}

// AggregationService is the process-wide entry point for tick ingestion and
// candle retrieval: it fronts the in-memory aggregator.Registry with a
// write-through Postgres store and a read-through Redis cache.
type AggregationService struct {
	registry *aggregator.Registry
	repo     *repositories.CandleRepository
	cache    *cache.RedisCache
	hub      Broadcaster
}

// NewAggregationService builds the service from its collaborators. hub may
// be nil, in which case candle updates are simply not broadcast.
func NewAggregationService(registry *aggregator.Registry, repo *repositories.CandleRepository, redisCache *cache.RedisCache, hub Broadcaster) *AggregationService {
	return &AggregationService{registry: registry, repo: repo, cache: redisCache, hub: hub}
}

// IngestTick processes one tick through the registry, seeding the slot from
// its last persisted row on first touch, then writes the updated candle
// through to Postgres and refreshes its cache entry.
func (s *AggregationService) IngestTick(ctx context.Context, t candle.Tick, timeframe string, bucketSize float64, multiplier int) (candle.Candle, bool, error) {
	var seed *aggregator.HistSeed
	if row, ok, err := s.repo.GetLatest(ctx, t.Symbol, timeframe, bucketSize, multiplier); err != nil {
		return candle.Candle{}, false, fmt.Errorf("failed to load seed candle: %w", err)
	} else if ok {
		seed = &aggregator.HistSeed{Candle: row.ToCandle(), HasCumVolume: true}
	}

	out, processed := s.registry.ProcessLiveData(t, timeframe, bucketSize, multiplier, seed)
	if !processed {
		return candle.Candle{}, false, nil
	}

	row := models.FromCandle(t.Symbol, timeframe, bucketSize, multiplier, out)
	if err := s.repo.Upsert(ctx, row); err != nil {
		return out, true, fmt.Errorf("failed to persist candle: %w", err)
	}

	resp := models.NewCandleResponse(t.Symbol, timeframe, out, true)
	key := models.CacheKey(t.Symbol, timeframe, bucketSize, multiplier)
	_ = s.cache.Set(ctx, key, resp, 30*time.Second) // cache failures never fail the write path

	if s.hub != nil {
		s.hub.BroadcastCandle(t.Symbol, timeframe, bucketSize, multiplier, resp)
	}
	return out, true, nil
}

// LatestCandle returns the most recent candle for a slot, checking the
// cache before falling back to Postgres.
func (s *AggregationService) LatestCandle(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int) (models.CandleResponse, bool, error) {
	key := models.CacheKey(symbol, timeframe, bucketSize, multiplier)
	var cached models.CandleResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, true, nil
	}

	row, ok, err := s.repo.GetLatest(ctx, symbol, timeframe, bucketSize, multiplier)
	if err != nil {
		return models.CandleResponse{}, false, err
	}
	if !ok {
		return models.CandleResponse{}, false, nil
	}
	resp := models.NewCandleResponse(symbol, timeframe, row.ToCandle(), true)
	_ = s.cache.Set(ctx, key, resp, 30*time.Second)
	return resp, true, nil
}

// History returns persisted candles within [start, end] for a slot.
func (s *AggregationService) History(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int, start, end int64) ([]models.CandleResponse, error) {
	rows, err := s.repo.GetRange(ctx, symbol, timeframe, bucketSize, multiplier, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]models.CandleResponse, len(rows))
	for i, row := range rows {
		out[i] = models.NewCandleResponse(symbol, timeframe, row.ToCandle(), true)
	}
	return out, nil
}

// ClearSlot drops a slot's in-memory state and persisted rows.
func (s *AggregationService) ClearSlot(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int) error {
	s.registry.ClearProcessorState(symbol, timeframe, bucketSize, multiplier)
	key := models.CacheKey(symbol, timeframe, bucketSize, multiplier)
	_ = s.cache.Delete(ctx, key)
	return s.repo.DeleteSlot(ctx, symbol, timeframe, bucketSize, multiplier)
}
