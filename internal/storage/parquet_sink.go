package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// ParquetFileName is the default columnar output file
const ParquetFileName = "leaderboard.parquet"

// ParquetRow is the fixed columnar schema. Pointer fields are optional
// columns and store nil as an explicit null.
type ParquetRow struct {
	Date                         string   `parquet:"date,snappy"`
	Name                         string   `parquet:"name,snappy"`
	Chest                        *bool    `parquet:"chest,optional,snappy"`
	Total                        *float64 `parquet:"total,optional,snappy"`
	TotalPointsEarnedByTVL       *float64 `parquet:"total_points_earned_by_tvl,optional,snappy"`
	TotalTVLUSD                  *float64 `parquet:"total_tvl_usd,optional,snappy"`
	TotalDirectReferrals         *int64   `parquet:"total_direct_referrals,optional,snappy"`
	TotalIndirectReferrals       *int64   `parquet:"total_indirect_referrals,optional,snappy"`
	TotalPointsEarnedByReferrals *float64 `parquet:"total_points_earned_by_referrals,optional,snappy"`
	Rank                         *int64   `parquet:"rank,optional,snappy"`
}

func toParquetRow(n types.NormalizedRank) ParquetRow {
	return ParquetRow{
		Date:                         n.Date,
		Name:                         n.Name,
		Chest:                        n.Chest,
		Total:                        n.Total,
		TotalPointsEarnedByTVL:       n.TotalPointsEarnedByTVL,
		TotalTVLUSD:                  n.TotalTVLUSD,
		TotalDirectReferrals:         n.TotalDirectReferrals,
		TotalIndirectReferrals:       n.TotalIndirectReferrals,
		TotalPointsEarnedByReferrals: n.TotalPointsEarnedByReferrals,
		Rank:                         n.Rank,
	}
}

func init() {
	RegisterSink(config.FormatParquet, func(ctx context.Context, cfg *config.Config) (RankSink, error) {
		return NewParquetSink(filepath.Join(cfg.Output.Dir, ParquetFileName)), nil
	})
}

// ParquetSink writes the export as a Snappy-compressed Parquet file
type ParquetSink struct {
	path string
}

// NewParquetSink creates a sink writing to path
func NewParquetSink(path string) *ParquetSink {
	return &ParquetSink{path: path}
}

func (s *ParquetSink) Name() string   { return config.FormatParquet }
func (s *ParquetSink) Target() string { return s.path }
func (s *ParquetSink) Close() error   { return nil }

// RemovePartial deletes the output file
func (s *ParquetSink) RemovePartial() error {
	return removeFile(s.path)
}

// Write opens the file, appends one row per record in input order and
// finalizes the footer. A failure leaves whatever was written on disk.
func (s *ParquetSink) Write(ctx context.Context, export *Export) error {
	f, err := os.Create(s.path)
	if err != nil {
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}

	w := parquet.NewGenericWriter[ParquetRow](f)
	fail := func(err error) error {
		_ = f.Close()
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}

	row := make([]ParquetRow, 1)
	for i, r := range export.Ranks {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		n, err := types.Normalize(r)
		if err != nil {
			return fail(fmt.Errorf("record %d (%s): %w", i, r.DisplayName(), err))
		}

		row[0] = toParquetRow(n)
		if _, err := w.Write(row); err != nil {
			return fail(fmt.Errorf("record %d: %w", i, err))
		}
	}

	if err := w.Close(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}
	return nil
}
