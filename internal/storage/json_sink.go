package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// JSONFileName is the default plain output file
const JSONFileName = "leaderboard.json"

func init() {
	RegisterSink(config.FormatJSON, func(ctx context.Context, cfg *config.Config) (RankSink, error) {
		return NewJSONSink(filepath.Join(cfg.Output.Dir, JSONFileName)), nil
	})
}

// JSONSink writes the export as an indented JSON array of the records
// exactly as they were received.
type JSONSink struct {
	path string
}

// NewJSONSink creates a sink writing to path
func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Name() string   { return config.FormatJSON }
func (s *JSONSink) Target() string { return s.path }
func (s *JSONSink) Close() error   { return nil }

// RemovePartial deletes the output file
func (s *JSONSink) RemovePartial() error {
	return removeFile(s.path)
}

// Write serializes every record and writes the file in one operation
func (s *JSONSink) Write(ctx context.Context, export *Export) error {
	ranks := export.Ranks
	if ranks == nil {
		ranks = []types.Rank{}
	}

	// HTML escaping would rewrite <, > and & inside the source records
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ranks); err != nil {
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if err := ctx.Err(); err != nil {
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return apperrors.NewWriteError(s.Name(), s.path, err)
	}
	return nil
}
