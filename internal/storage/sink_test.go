package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaderboard-collector/internal/config"
	apperrors "github.com/leaderboard-collector/internal/errors"
)

func TestRegisteredFormats(t *testing.T) {
	assert.Equal(t, []string{
		config.FormatClickHouse,
		config.FormatJSON,
		config.FormatParquet,
		config.FormatPostgres,
		config.FormatRedis,
	}, RegisteredFormats())
}

func TestNewSinkFileFormats(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Output: config.OutputConfig{Dir: dir}}

	cfg.Output.Format = config.FormatParquet
	sink, err := NewSink(testContext(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.FormatParquet, sink.Name())
	assert.Equal(t, filepath.Join(dir, "leaderboard.parquet"), sink.Target())
	_, ok := sink.(PartialRemover)
	assert.True(t, ok)

	cfg.Output.Format = config.FormatJSON
	sink, err = NewSink(testContext(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaderboard.json"), sink.Target())
}

func TestNewSinkUnknownFormat(t *testing.T) {
	cfg := &config.Config{Output: config.OutputConfig{Format: "csv"}}

	sink, err := NewSink(testContext(t), cfg)
	assert.Nil(t, sink)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
}
