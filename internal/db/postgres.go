package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"postmorty/internal/candle"
	"postmorty/internal/db/conf"
	"postmorty/internal/indicator"

	_ "github.com/lib/pq"
)

// Transaction context key
type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// executeWithTransaction executes a function with proper transaction management.
// If a transaction exists in context, it uses that. Otherwise, it creates a new one.
func (p *Postgres) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}

	return nil
}

// queryWithTransaction executes a query using transaction from context if available
func (p *Postgres) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

type Postgres struct {
	db *sql.DB
}

func New(c conf.Config) (*Postgres, error) {
	return &Postgres{db: c.DB}, nil
}

func (p *Postgres) GetDB() *sql.DB { return p.db }

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// SaveCandles upserts raw daily bars into ohlcv_daily, keyed by (symbol, date).
// Re-ingesting an overlapping range overwrites rather than duplicates.
func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d for %s at %s: %w",
				i, candles[i].Symbol, candles[i].Date.Format("2006-01-02"), err)
		}
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ohlcv_daily (symbol, date, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (symbol, date) DO UPDATE SET
				open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
				close=EXCLUDED.close, volume=EXCLUDED.volume
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare ohlcv insert: %w", err)
		}
		defer stmt.Close()

		for i := range candles {
			c := &candles[i]
			if _, err := stmt.ExecContext(ctx, c.Symbol, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
				return fmt.Errorf("failed to save candle for %s at %s: %w",
					c.Symbol, c.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// GetCandles returns all raw bars for a symbol, ascending by date.
func (p *Postgres) GetCandles(ctx context.Context, symbol string) ([]candle.Candle, error) {
	return p.GetCandlesRange(ctx, symbol, time.Time{}, time.Time{})
}

// GetCandlesRange returns raw bars for a symbol within [start, end), ascending
// by date. Zero times leave the corresponding bound open.
func (p *Postgres) GetCandlesRange(ctx context.Context, symbol string, start, end time.Time) ([]candle.Candle, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume
		FROM ohlcv_daily
		WHERE symbol=$1`
	args := []any{symbol}

	if !start.IsZero() {
		args = append(args, start)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND date < $%d", len(args))
	}
	query += " ORDER BY date ASC"

	rows, err := p.queryWithTransaction(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Symbol, &c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		c.Date = c.Date.UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candle rows: %w", err)
	}

	return candles, nil
}

// GetSymbols lists every symbol with at least one ingested bar.
func (p *Postgres) GetSymbols(ctx context.Context) ([]string, error) {
	rows, err := p.queryWithTransaction(ctx, `SELECT DISTINCT symbol FROM ohlcv_daily ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol rows: %w", err)
	}

	return symbols, nil
}

// SaveRecords upserts indicator records into candles_d1, keyed by (symbol, date).
// NaN floats and invalid counters are written as SQL NULL.
func (p *Postgres) SaveRecords(ctx context.Context, records []indicator.Record) error {
	if len(records) == 0 {
		return nil
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO candles_d1 (
				symbol, date, open, high, low, close, volume,
				ema_10, ema_36, ema_100, ema_200,
				bb_basis_20, bb_upper_20, bb_lower_20,
				rsi_14, supertrend_7_3, supertrend_direction, td_seq,
				pct_body_range, pct_full_range,
				pct_from_ema_10, pct_from_ema_36, pct_from_ema_100, pct_from_ema_200,
				pct_from_bb_basis_20,
				streak_bb_basis_20, streak_ema_36, streak_ema_100, streak_ema_200
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7,
				$8, $9, $10, $11,
				$12, $13, $14,
				$15, $16, $17, $18,
				$19, $20,
				$21, $22, $23, $24,
				$25,
				$26, $27, $28, $29
			)
			ON CONFLICT (symbol, date) DO UPDATE SET
				open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
				close=EXCLUDED.close, volume=EXCLUDED.volume,
				ema_10=EXCLUDED.ema_10, ema_36=EXCLUDED.ema_36,
				ema_100=EXCLUDED.ema_100, ema_200=EXCLUDED.ema_200,
				bb_basis_20=EXCLUDED.bb_basis_20, bb_upper_20=EXCLUDED.bb_upper_20,
				bb_lower_20=EXCLUDED.bb_lower_20,
				rsi_14=EXCLUDED.rsi_14, supertrend_7_3=EXCLUDED.supertrend_7_3,
				supertrend_direction=EXCLUDED.supertrend_direction, td_seq=EXCLUDED.td_seq,
				pct_body_range=EXCLUDED.pct_body_range, pct_full_range=EXCLUDED.pct_full_range,
				pct_from_ema_10=EXCLUDED.pct_from_ema_10, pct_from_ema_36=EXCLUDED.pct_from_ema_36,
				pct_from_ema_100=EXCLUDED.pct_from_ema_100, pct_from_ema_200=EXCLUDED.pct_from_ema_200,
				pct_from_bb_basis_20=EXCLUDED.pct_from_bb_basis_20,
				streak_bb_basis_20=EXCLUDED.streak_bb_basis_20, streak_ema_36=EXCLUDED.streak_ema_36,
				streak_ema_100=EXCLUDED.streak_ema_100, streak_ema_200=EXCLUDED.streak_ema_200,
				updated_at=CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare record insert: %w", err)
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]
			_, err := stmt.ExecContext(ctx,
				r.Symbol, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume,
				nullFloat(r.EMA10), nullFloat(r.EMA36), nullFloat(r.EMA100), nullFloat(r.EMA200),
				nullFloat(r.BBBasis20), nullFloat(r.BBUpper20), nullFloat(r.BBLower20),
				nullFloat(r.RSI14), nullFloat(r.Supertrend73), r.SupertrendDir, r.TDSeq,
				nullFloat(r.PctBodyRange), nullFloat(r.PctFullRange),
				nullFloat(r.PctFromEMA10), nullFloat(r.PctFromEMA36),
				nullFloat(r.PctFromEMA100), nullFloat(r.PctFromEMA200),
				nullFloat(r.PctFromBBBasis20),
				r.StreakBBBasis20, r.StreakEMA36, r.StreakEMA100, r.StreakEMA200,
			)
			if err != nil {
				return fmt.Errorf("failed to save record for %s at %s: %w",
					r.Symbol, r.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// GetRecords returns the most recent limit indicator records for a symbol,
// ascending by date. limit <= 0 returns everything.
func (p *Postgres) GetRecords(ctx context.Context, symbol string, limit int) ([]indicator.Record, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume,
			ema_10, ema_36, ema_100, ema_200,
			bb_basis_20, bb_upper_20, bb_lower_20,
			rsi_14, supertrend_7_3, supertrend_direction, td_seq,
			pct_body_range, pct_full_range,
			pct_from_ema_10, pct_from_ema_36, pct_from_ema_100, pct_from_ema_200,
			pct_from_bb_basis_20,
			streak_bb_basis_20, streak_ema_36, streak_ema_100, streak_ema_200
		FROM candles_d1
		WHERE symbol=$1
		ORDER BY date DESC`
	args := []any{symbol}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.queryWithTransaction(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []indicator.Record
	for rows.Next() {
		var r indicator.Record
		var ema10, ema36, ema100, ema200 sql.NullFloat64
		var bbBasis, bbUpper, bbLower sql.NullFloat64
		var rsi, st sql.NullFloat64
		var pctBody, pctFull sql.NullFloat64
		var pctE10, pctE36, pctE100, pctE200, pctBB sql.NullFloat64
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&ema10, &ema36, &ema100, &ema200,
			&bbBasis, &bbUpper, &bbLower,
			&rsi, &st, &r.SupertrendDir, &r.TDSeq,
			&pctBody, &pctFull,
			&pctE10, &pctE36, &pctE100, &pctE200,
			&pctBB,
			&r.StreakBBBasis20, &r.StreakEMA36, &r.StreakEMA100, &r.StreakEMA200,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Date = r.Date.UTC()
		r.EMA10, r.EMA36, r.EMA100, r.EMA200 = floatOrNaN(ema10), floatOrNaN(ema36), floatOrNaN(ema100), floatOrNaN(ema200)
		r.BBBasis20, r.BBUpper20, r.BBLower20 = floatOrNaN(bbBasis), floatOrNaN(bbUpper), floatOrNaN(bbLower)
		r.RSI14, r.Supertrend73 = floatOrNaN(rsi), floatOrNaN(st)
		r.PctBodyRange, r.PctFullRange = floatOrNaN(pctBody), floatOrNaN(pctFull)
		r.PctFromEMA10, r.PctFromEMA36 = floatOrNaN(pctE10), floatOrNaN(pctE36)
		r.PctFromEMA100, r.PctFromEMA200 = floatOrNaN(pctE100), floatOrNaN(pctE200)
		r.PctFromBBBasis20 = floatOrNaN(pctBB)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	// Rows came newest-first; flip to ascending.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

// GetUniverse lists symbols whose market cap falls inside [min, max],
// largest first.
func (p *Postgres) GetUniverse(ctx context.Context, minMarketCap, maxMarketCap int64) ([]string, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT symbol FROM company_valuations
		WHERE market_cap >= $1 AND market_cap <= $2
		ORDER BY market_cap DESC`, minMarketCap, maxMarketCap)
	if err != nil {
		return nil, fmt.Errorf("failed to query universe: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan universe symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating universe rows: %w", err)
	}

	return symbols, nil
}

func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
