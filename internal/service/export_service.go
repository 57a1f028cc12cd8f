package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/leaderboard-collector/internal/logging"
	"github.com/leaderboard-collector/internal/storage"
)

// RunSummary describes a completed export
type RunSummary struct {
	RunID      uuid.UUID     `json:"runId"`
	Records    int           `json:"records"`
	TotalCount int           `json:"totalCount"`
	Pages      int           `json:"pages"`
	Sink       string        `json:"sink"`
	Target     string        `json:"target"`
	Duration   time.Duration `json:"duration"`
}

// ExportService runs one collection and hands the result to one sink
type ExportService struct {
	collector   *CollectorService
	sink        storage.RankSink
	keepPartial bool
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewExportService creates an export pipeline. keepPartial leaves incomplete
// sink output in place when a write fails.
func NewExportService(collector *CollectorService, sink storage.RankSink, keepPartial bool) (*ExportService, error) {
	if collector == nil {
		return nil, errors.New("collector is required")
	}
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	return &ExportService{
		collector:   collector,
		sink:        sink,
		keepPartial: keepPartial,
		now:         time.Now,
		newID:       uuid.New,
	}, nil
}

// Run fetches the full leaderboard, then writes it. The sink is not touched
// when fetching fails.
func (s *ExportService) Run(ctx context.Context) (*RunSummary, error) {
	runID := s.newID()
	started := s.now()

	logger := logging.FromContext(ctx).WithRun(runID.String())
	ctx = logging.WithLogger(ctx, logger)

	collected, err := s.collector.FetchAllRanks(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("Retrieved %d total ranks", len(collected.Ranks))

	export := &storage.Export{
		RunID:     runID,
		FetchedAt: started,
		Ranks:     collected.Ranks,
	}

	if err := s.sink.Write(ctx, export); err != nil {
		s.handleWriteFailure(logger)
		return nil, err
	}

	summary := &RunSummary{
		RunID:      runID,
		Records:    len(collected.Ranks),
		TotalCount: collected.TotalCount,
		Pages:      collected.Pages,
		Sink:       s.sink.Name(),
		Target:     s.sink.Target(),
		Duration:   s.now().Sub(started),
	}

	logger.WithFields(map[string]interface{}{
		"records":  summary.Records,
		"pages":    summary.Pages,
		"sink":     summary.Sink,
		"duration": summary.Duration.String(),
	}).Infof("Saved %d records to %s", summary.Records, summary.Target)

	return summary, nil
}

func (s *ExportService) handleWriteFailure(logger *logging.Logger) {
	remover, ok := s.sink.(storage.PartialRemover)
	if !ok {
		return
	}
	if s.keepPartial {
		logger.WithField("target", s.sink.Target()).Warn("Keeping partial output after write failure")
		return
	}
	if err := remover.RemovePartial(); err != nil {
		logger.WithError(err).Warn("Failed to remove partial output")
		return
	}
	logger.WithField("target", s.sink.Target()).Info("Removed partial output after write failure")
}
