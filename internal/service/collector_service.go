// Package service implements the collect-then-export pipeline.
package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/logging"
	"github.com/leaderboard-collector/internal/ratelimit"
	"github.com/leaderboard-collector/internal/retry"
	"github.com/leaderboard-collector/internal/types"
)

// DefaultPageSize is the number of records requested per page
const DefaultPageSize = 5000

// DefaultProgressEvery is how many pages pass between progress lines
const DefaultProgressEvery = 10

// PageFetcher fetches one page of the leaderboard
type PageFetcher interface {
	FetchPage(ctx context.Context, first, offset int) (*types.LeaderboardPage, error)
}

// CollectorConfig holds configuration for the collector
type CollectorConfig struct {
	Fetcher PageFetcher
	Gate    ratelimit.Gate
	Retry   *retry.RetryConfig

	PageSize      int
	ProgressEvery int

	// StrictCount fails the run when the fetched record count differs from
	// the first page's totalCount. When false the mismatch is only logged.
	StrictCount bool
}

// CollectResult is the accumulated output of one pagination run
type CollectResult struct {
	Ranks      []types.Rank
	TotalCount int
	Pages      int
	Offsets    []int
}

// CollectorService paginates through the leaderboard strictly sequentially
type CollectorService struct {
	fetcher       PageFetcher
	gate          ratelimit.Gate
	retry         *retry.RetryConfig
	pageSize      int
	progressEvery int
	strictCount   bool
}

// NewCollectorService creates a collector, applying defaults for zero values
func NewCollectorService(cfg *CollectorConfig) (*CollectorService, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.PageSize < 0 {
		return nil, errors.New("page size cannot be negative")
	}

	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	progressEvery := cfg.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	gate := cfg.Gate
	if gate == nil {
		gate = ratelimit.NewIntervalGate(ratelimit.DefaultInterval, nil)
	}
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultRetryConfig(1)
	}

	return &CollectorService{
		fetcher:       cfg.Fetcher,
		gate:          gate,
		retry:         retryCfg,
		pageSize:      pageSize,
		progressEvery: progressEvery,
		strictCount:   cfg.StrictCount,
	}, nil
}

// TotalPages returns ceil(totalCount / pageSize); page 0 is always fetched
// so the result is at least 1.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 1
	}
	return (totalCount + pageSize - 1) / pageSize
}

// PlanOffsets returns the offset of every page in request order
func PlanOffsets(totalCount, pageSize int) []int {
	pages := TotalPages(totalCount, pageSize)
	offsets := make([]int, pages)
	for page := range offsets {
		offsets[page] = page * pageSize
	}
	return offsets
}

// FetchAllRanks collects every record, in page order then arrival order.
// Any page failure aborts the run and discards what was accumulated.
func (s *CollectorService) FetchAllRanks(ctx context.Context) (*CollectResult, error) {
	logger := logging.FromContext(ctx)

	first, err := s.fetchPage(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch page 0: %w", err)
	}

	totalPages := TotalPages(first.TotalCount, s.pageSize)
	logger.WithFields(map[string]interface{}{
		"total_count": first.TotalCount,
		"page_size":   s.pageSize,
	}).Infof("Fetching %d pages...", totalPages)

	result := &CollectResult{
		Ranks:      make([]types.Rank, 0, len(first.Ranks)),
		TotalCount: first.TotalCount,
		Offsets:    []int{0},
		Pages:      1,
	}
	result.Ranks = append(result.Ranks, first.Ranks...)

	for page := 1; page < totalPages; page++ {
		offset := page * s.pageSize
		resp, err := s.fetchPage(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d/%d: %w", page, totalPages, err)
		}

		result.Ranks = append(result.Ranks, resp.Ranks...)
		result.Offsets = append(result.Offsets, offset)
		result.Pages++

		if page%s.progressEvery == 0 {
			logger.WithField("records", len(result.Ranks)).Infof("Fetched %d/%d pages", page, totalPages)
		}
	}

	if len(result.Ranks) != result.TotalCount {
		mismatch := apperrors.NewCountMismatchError(result.TotalCount, len(result.Ranks))
		if s.strictCount {
			return nil, mismatch
		}
		logger.WithFields(mismatch.Details).Warn("Fetched record count differs from totalCount")
	}

	return result, nil
}

// fetchPage passes the gate and requests one page, retrying per policy
func (s *CollectorService) fetchPage(ctx context.Context, offset int) (*types.LeaderboardPage, error) {
	var page *types.LeaderboardPage

	err := retry.Do(ctx, s.retry, func(ctx context.Context, attempt int) error {
		if err := s.gate.Wait(ctx); err != nil {
			return err
		}
		p, err := s.fetcher.FetchPage(ctx, s.pageSize, offset)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
