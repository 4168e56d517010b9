// Package history persists both sides of every snipe to ClickHouse so
// performance can be analyzed offline. Inserts are best effort; a down
// warehouse never blocks trading.
package history

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/sniper"
)

type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type Store struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &Store{conn: conn, logger: cfg.Logger}, nil
}

// EnsureSchema creates the trades table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS trades (
			timestamp    DateTime64(3),
			mint         String,
			pool         String,
			amm          LowCardinality(String),
			side         LowCardinality(String),
			signature    String,
			sol_amount   Float64,
			token_amount Float64,
			price        Float64,
			pnl_percent  Float64,
			strategy     LowCardinality(String),
			reason       String
		) ENGINE = MergeTree()
		ORDER BY (mint, timestamp)
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}
	return nil
}

// RecordTrade implements sniper.TradeRecorder.
func (s *Store) RecordTrade(ctx context.Context, rec sniper.TradeRecord) error {
	query := `
		INSERT INTO trades (
			timestamp, mint, pool, amm, side, signature,
			sol_amount, token_amount, price, pnl_percent, strategy, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		rec.Timestamp,
		rec.Mint,
		rec.Pool,
		string(rec.Amm),
		rec.Side,
		rec.Signature,
		rec.SolAmount,
		rec.TokenAmount,
		rec.Price,
		rec.PnLPercent,
		string(rec.Strategy),
		rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// RecentTrades returns the latest trades for the control API.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]sniper.TradeRecord, error) {
	query := `
		SELECT timestamp, mint, pool, amm, side, signature,
		       sol_amount, token_amount, price, pnl_percent, strategy, reason
		FROM trades
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []sniper.TradeRecord
	for rows.Next() {
		var rec sniper.TradeRecord
		var ammKind, strategy string
		if err := rows.Scan(
			&rec.Timestamp, &rec.Mint, &rec.Pool, &ammKind, &rec.Side, &rec.Signature,
			&rec.SolAmount, &rec.TokenAmount, &rec.Price, &rec.PnLPercent, &strategy, &rec.Reason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		rec.Amm = sniper.AmmKind(ammKind)
		rec.Strategy = sniper.StrategyName(strategy)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.conn.Close()
}
