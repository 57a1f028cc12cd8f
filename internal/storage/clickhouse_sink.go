package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// ClickHouseTable receives one row per record per run
const ClickHouseTable = "leaderboard_ranks"

func init() {
	RegisterSink(config.FormatClickHouse, func(ctx context.Context, cfg *config.Config) (RankSink, error) {
		conn, err := NewClickHouseConn(ctx, &cfg.Database.ClickHouse)
		if err != nil {
			return nil, err
		}
		return NewClickHouseSink(conn), nil
	})
}

// NewClickHouseConn opens a ClickHouse connection and verifies it
func NewClickHouseConn(ctx context.Context, cfg *config.ClickHouseConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return conn, nil
}

// batchConn is the subset of driver.Conn the sink needs
type batchConn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Close() error
}

// ClickHouseSink inserts the export as a single batch
type ClickHouseSink struct {
	conn batchConn
}

// NewClickHouseSink creates a sink on conn
func NewClickHouseSink(conn batchConn) *ClickHouseSink {
	return &ClickHouseSink{conn: conn}
}

func (s *ClickHouseSink) Name() string   { return config.FormatClickHouse }
func (s *ClickHouseSink) Target() string { return ClickHouseTable }

// Close closes the connection
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

// Write appends every record to one batch and sends it
func (s *ClickHouseSink) Write(ctx context.Context, export *Export) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO `+ClickHouseTable+` (run_id, position, fetched_at, date, name, chest, total,
			total_points_earned_by_tvl, total_tvl_usd, total_direct_referrals,
			total_indirect_referrals, total_points_earned_by_referrals, rank)
	`)
	if err != nil {
		return apperrors.NewWriteError(s.Name(), s.Target(), fmt.Errorf("failed to prepare batch: %w", err))
	}

	fetchedAt := export.FetchedAt.UTC()
	for i, r := range export.Ranks {
		n, err := types.Normalize(r)
		if err != nil {
			_ = batch.Abort()
			return apperrors.NewWriteError(s.Name(), s.Target(), fmt.Errorf("record %d (%s): %w", i, r.DisplayName(), err))
		}

		if err := batch.Append(
			export.RunID,
			uint32(i), // #nosec G115 - index of a slice
			fetchedAt,
			n.Date,
			n.Name,
			n.Chest,
			n.Total,
			n.TotalPointsEarnedByTVL,
			n.TotalTVLUSD,
			n.TotalDirectReferrals,
			n.TotalIndirectReferrals,
			n.TotalPointsEarnedByReferrals,
			n.Rank,
		); err != nil {
			_ = batch.Abort()
			return apperrors.NewWriteError(s.Name(), s.Target(), fmt.Errorf("failed to append to batch: %w", err))
		}
	}

	if err := batch.Send(); err != nil {
		return apperrors.NewWriteError(s.Name(), s.Target(), err)
	}
	return nil
}
