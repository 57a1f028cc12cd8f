package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leaderboard-collector/internal/types"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

const fixtureRanks = `[
  {"date":"2024-11-02","name":"alice","chest":true,"total":1500.25,"total_points_earned_by_tvl":1200,"total_tvl_usd":50000.5,"total_direct_referrals":4,"total_indirect_referrals":9,"total_points_earned_by_referrals":300.25,"rank":1},
  {"date":"2024-11-02","name":"bob","total":900,"total_points_earned_by_tvl":900,"total_tvl_usd":12000,"rank":2},
  {"date":"2024-11-02","name":"carol","chest":false,"total":null,"total_points_earned_by_tvl":null,"total_tvl_usd":null,"rank":9007199254740993}
]`

// fixtureExport decodes the records the way the API client does
func fixtureExport(t *testing.T, raw string) *Export {
	t.Helper()
	var ranks []types.Rank
	require.NoError(t, json.Unmarshal([]byte(raw), &ranks))
	return &Export{
		RunID:     uuid.MustParse("6f1c6a0e-8f5d-4d8a-9a55-0c6f2b1d3e4f"),
		FetchedAt: time.Date(2024, 11, 2, 12, 0, 0, 0, time.UTC),
		Ranks:     ranks,
	}
}
