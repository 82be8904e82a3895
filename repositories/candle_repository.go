package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tickcandle/internal/database"
	"tickcandle/models"
)

// CandleRepository persists candles and their footprint ladders.
type CandleRepository struct {
	db *database.DB
}

// NewCandleRepository creates a new candle repository.
func NewCandleRepository(db *database.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Upsert writes one candle row, overwriting any existing row for the same
// (symbol, timeframe, bucket_size, multiplier, bin_time) slot — candles are
// mutated in place while their bin is open, so every write is an upsert.
func (r *CandleRepository) Upsert(ctx context.Context, row models.CandleRow) error {
	footprint, err := row.MarshalFootprint()
	if err != nil {
		return fmt.Errorf("failed to marshal footprint: %w", err)
	}

	now := time.Now()
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO candles (symbol, timeframe, bucket_size, multiplier, bin_time,
		                     open, high, low, close, volume, buy_volume, sell_volume,
		                     delta, cum_delta, cum_volume, pre_open_aligned, footprint,
		                     created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
		ON CONFLICT (symbol, timeframe, bucket_size, multiplier, bin_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			buy_volume = EXCLUDED.buy_volume,
			sell_volume = EXCLUDED.sell_volume,
			delta = EXCLUDED.delta,
			cum_delta = EXCLUDED.cum_delta,
			cum_volume = EXCLUDED.cum_volume,
			pre_open_aligned = EXCLUDED.pre_open_aligned,
			footprint = EXCLUDED.footprint,
			updated_at = $18
	`,
		row.Symbol, row.Timeframe, row.BucketSize, row.Multiplier, row.BinTime,
		row.Open, row.High, row.Low, row.Close, row.Volume, row.BuyVolume, row.SellVol,
		row.Delta, row.CumDelta, row.CumVolume, row.PreOpenAligned, footprint, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert candle: %w", err)
	}
	return nil
}

// BulkUpsert writes a batch of rows, typically the output of one resampler
// run, using pgx.Batch for round-trip efficiency.
func (r *CandleRepository) BulkUpsert(ctx context.Context, rows []models.CandleRow) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, row := range rows {
		footprint, err := row.MarshalFootprint()
		if err != nil {
			return fmt.Errorf("failed to marshal footprint: %w", err)
		}
		batch.Queue(`
			INSERT INTO candles (symbol, timeframe, bucket_size, multiplier, bin_time,
			                     open, high, low, close, volume, buy_volume, sell_volume,
			                     delta, cum_delta, cum_volume, pre_open_aligned, footprint,
			                     created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
			ON CONFLICT (symbol, timeframe, bucket_size, multiplier, bin_time) DO UPDATE SET
				open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close,
				volume = EXCLUDED.volume, buy_volume = EXCLUDED.buy_volume, sell_volume = EXCLUDED.sell_volume,
				delta = EXCLUDED.delta, cum_delta = EXCLUDED.cum_delta, cum_volume = EXCLUDED.cum_volume,
				pre_open_aligned = EXCLUDED.pre_open_aligned, footprint = EXCLUDED.footprint, updated_at = $18
		`,
			row.Symbol, row.Timeframe, row.BucketSize, row.Multiplier, row.BinTime,
			row.Open, row.High, row.Low, row.Close, row.Volume, row.BuyVolume, row.SellVol,
			row.Delta, row.CumDelta, row.CumVolume, row.PreOpenAligned, footprint, now,
		)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < len(rows); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert candle %d: %w", i, err)
		}
	}
	return nil
}

// GetLatest returns the most recent row for one slot, or (zero, false) if
// none exists — used to seed a fresh live aggregator instance.
func (r *CandleRepository) GetLatest(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int) (models.CandleRow, bool, error) {
	var row models.CandleRow
	var footprint []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, symbol, timeframe, bucket_size, multiplier, bin_time,
		       open, high, low, close, volume, buy_volume, sell_volume,
		       delta, cum_delta, cum_volume, pre_open_aligned, footprint, created_at, updated_at
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND bucket_size = $3 AND multiplier = $4
		ORDER BY bin_time DESC
		LIMIT 1
	`, symbol, timeframe, bucketSize, multiplier).Scan(
		&row.ID, &row.Symbol, &row.Timeframe, &row.BucketSize, &row.Multiplier, &row.BinTime,
		&row.Open, &row.High, &row.Low, &row.Close, &row.Volume, &row.BuyVolume, &row.SellVol,
		&row.Delta, &row.CumDelta, &row.CumVolume, &row.PreOpenAligned, &footprint, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.CandleRow{}, false, nil
		}
		return models.CandleRow{}, false, fmt.Errorf("failed to get latest candle: %w", err)
	}
	if err := row.UnmarshalFootprint(footprint); err != nil {
		return models.CandleRow{}, false, fmt.Errorf("failed to unmarshal footprint: %w", err)
	}
	return row, true, nil
}

// GetRange returns rows within [start, end] ordered ascending by bin time,
// used by the history endpoint.
func (r *CandleRepository) GetRange(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int, start, end int64) ([]models.CandleRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, timeframe, bucket_size, multiplier, bin_time,
		       open, high, low, close, volume, buy_volume, sell_volume,
		       delta, cum_delta, cum_volume, pre_open_aligned, footprint, created_at, updated_at
		FROM candles
		WHERE symbol = $1 AND timeframe = $2 AND bucket_size = $3 AND multiplier = $4
		  AND bin_time >= $5 AND bin_time <= $6
		ORDER BY bin_time ASC
	`, symbol, timeframe, bucketSize, multiplier, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle range: %w", err)
	}
	defer rows.Close()

	var out []models.CandleRow
	for rows.Next() {
		var row models.CandleRow
		var footprint []byte
		if err := rows.Scan(
			&row.ID, &row.Symbol, &row.Timeframe, &row.BucketSize, &row.Multiplier, &row.BinTime,
			&row.Open, &row.High, &row.Low, &row.Close, &row.Volume, &row.BuyVolume, &row.SellVol,
			&row.Delta, &row.CumDelta, &row.CumVolume, &row.PreOpenAligned, &footprint, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		if err := row.UnmarshalFootprint(footprint); err != nil {
			return nil, fmt.Errorf("failed to unmarshal footprint: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// DeleteSlot drops every row for one (symbol, timeframe, bucket_size,
// multiplier) slot, mirroring ClearProcessorState's in-memory reset.
func (r *CandleRepository) DeleteSlot(ctx context.Context, symbol, timeframe string, bucketSize float64, multiplier int) error {
	_, err := r.db.Pool.Exec(ctx, `
		DELETE FROM candles WHERE symbol = $1 AND timeframe = $2 AND bucket_size = $3 AND multiplier = $4
	`, symbol, timeframe, bucketSize, multiplier)
	if err != nil {
		return fmt.Errorf("failed to delete candle slot: %w", err)
	}
	return nil
}
