package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// PostgresTable receives one row per record per run
const PostgresTable = "leaderboard_ranks"

// PostgresColumns is the COPY column order
var PostgresColumns = []string{
	"run_id",
	"position",
	"fetched_at",
	"date",
	"name",
	"chest",
	"total",
	"total_points_earned_by_tvl",
	"total_tvl_usd",
	"total_direct_referrals",
	"total_indirect_referrals",
	"total_points_earned_by_referrals",
	"rank",
}

func init() {
	RegisterSink(config.FormatPostgres, func(ctx context.Context, cfg *config.Config) (RankSink, error) {
		pool, err := NewPostgresPool(ctx, &cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		return NewPostgresSink(pool, pool.Close), nil
	})
}

// NewPostgresPool creates a Postgres connection pool and verifies it
func NewPostgresPool(ctx context.Context, cfg *config.PostgresConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.MaxConnections,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// copier is the subset of pgxpool.Pool the sink needs
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresSink bulk-loads the export with COPY. COPY is a single statement,
// so a failed run leaves no rows behind.
type PostgresSink struct {
	db    copier
	close func()
}

// NewPostgresSink creates a sink on db; closeFn releases it and may be nil
func NewPostgresSink(db copier, closeFn func()) *PostgresSink {
	return &PostgresSink{db: db, close: closeFn}
}

func (s *PostgresSink) Name() string   { return config.FormatPostgres }
func (s *PostgresSink) Target() string { return PostgresTable }

// Close releases the pool
func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Write copies every record tagged with the run ID and its position
func (s *PostgresSink) Write(ctx context.Context, export *Export) error {
	normalized, err := types.NormalizeAll(export.Ranks)
	if err != nil {
		return apperrors.NewWriteError(s.Name(), s.Target(), err)
	}

	fetchedAt := export.FetchedAt.UTC()
	rows := pgx.CopyFromSlice(len(normalized), func(i int) ([]any, error) {
		n := normalized[i]
		return []any{
			export.RunID,
			int32(i), // #nosec G115 - index of a slice
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
		}, nil
	})

	copied, err := s.db.CopyFrom(ctx, pgx.Identifier{PostgresTable}, PostgresColumns, rows)
	if err != nil {
		return apperrors.NewWriteError(s.Name(), s.Target(), err)
	}
	if copied != int64(len(normalized)) {
		return apperrors.NewWriteError(s.Name(), s.Target(),
			fmt.Errorf("copied %d rows, expected %d", copied, len(normalized)))
	}
	return nil
}
