// Package storage provides the sinks a collected leaderboard can be written to.
package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// Export is the accumulated result of one collection run
type Export struct {
	RunID     uuid.UUID
	FetchedAt time.Time
	Ranks     []types.Rank
}

// RankSink persists an export. Exactly one sink consumes each run.
type RankSink interface {
	// Name is the output format the sink implements
	Name() string
	// Target describes where the data goes: a file path, key prefix or table
	Target() string
	Write(ctx context.Context, export *Export) error
	Close() error
}

// PartialRemover is implemented by sinks that can leave incomplete output
// behind when Write fails.
type PartialRemover interface {
	RemovePartial() error
}

// SinkFactory builds a sink from configuration
type SinkFactory func(ctx context.Context, cfg *config.Config) (RankSink, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]SinkFactory{}
)

// RegisterSink registers a factory for an output format (last wins)
func RegisterSink(format string, factory SinkFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[format] = factory
}

// NewSink builds the sink configured in cfg.Output.Format
func NewSink(ctx context.Context, cfg *config.Config) (RankSink, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Output.Format]
	factoriesMu.RUnlock()
	if !ok {
		return nil, apperrors.NewUnknownFormatError(cfg.Output.Format)
	}

	sink, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s sink: %w", cfg.Output.Format, err)
	}
	return sink, nil
}

// RegisteredFormats lists the known output formats in sorted order
func RegisteredFormats() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	formats := make([]string, 0, len(factories))
	for format := range factories {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// removeFile deletes path, treating a missing file as success
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
