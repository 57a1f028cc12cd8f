package types

import (
	"encoding/json"
	"fmt"
	"math"

	apperrors "github.com/leaderboard-collector/internal/errors"
)

// NormalizedRank is a Rank with every field narrowed to its column type.
//
// Null policy per field:
//   - Date, Name: absent or null becomes "".
//   - Chest: absent or null stays nil, never false.
//   - Total, TotalPointsEarnedByTVL, TotalTVLUSD,
//     TotalPointsEarnedByReferrals: absent or null stays nil.
//   - TotalDirectReferrals, TotalIndirectReferrals, Rank: absent or null
//     stays nil; present values must be integral.
type NormalizedRank struct {
	Date                         string
	Name                         string
	Chest                        *bool
	Total                        *float64
	TotalPointsEarnedByTVL       *float64
	TotalTVLUSD                  *float64
	TotalDirectReferrals         *int64
	TotalIndirectReferrals       *int64
	TotalPointsEarnedByReferrals *float64
	Rank                         *int64
}

// Normalize maps a raw record onto its typed form.
func Normalize(r Rank) (NormalizedRank, error) {
	n := NormalizedRank{
		Date:  deref(r.Date),
		Name:  deref(r.Name),
		Chest: r.Chest,
	}

	var err error
	if n.Total, err = toFloat("total", r.Total); err != nil {
		return NormalizedRank{}, err
	}
	if n.TotalPointsEarnedByTVL, err = toFloat("total_points_earned_by_tvl", r.TotalPointsEarnedByTVL); err != nil {
		return NormalizedRank{}, err
	}
	if n.TotalTVLUSD, err = toFloat("total_tvl_usd", r.TotalTVLUSD); err != nil {
		return NormalizedRank{}, err
	}
	if n.TotalPointsEarnedByReferrals, err = toFloat("total_points_earned_by_referrals", r.TotalPointsEarnedByReferrals); err != nil {
		return NormalizedRank{}, err
	}
	if n.TotalDirectReferrals, err = toInt("total_direct_referrals", r.TotalDirectReferrals); err != nil {
		return NormalizedRank{}, err
	}
	if n.TotalIndirectReferrals, err = toInt("total_indirect_referrals", r.TotalIndirectReferrals); err != nil {
		return NormalizedRank{}, err
	}
	if n.Rank, err = toInt("rank", r.Rank); err != nil {
		return NormalizedRank{}, err
	}

	return n, nil
}

// NormalizeAll normalizes ranks in order, stopping at the first failure.
func NormalizeAll(ranks []Rank) ([]NormalizedRank, error) {
	out := make([]NormalizedRank, 0, len(ranks))
	for i, r := range ranks {
		n, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, r.DisplayName(), err)
		}
		out = append(out, n)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toFloat(field string, n *json.Number) (*float64, error) {
	if n == nil {
		return nil, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, apperrors.NewDecodeError("field "+field, err)
	}
	return &f, nil
}

func toInt(field string, n *json.Number) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	if i, err := n.Int64(); err == nil {
		return &i, nil
	}

	// Accept integral values written in float notation, e.g. 12.0 or 1e3
	f, err := n.Float64()
	if err != nil {
		return nil, apperrors.NewDecodeError("field "+field, err)
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, apperrors.NewDecodeError("field "+field, fmt.Errorf("%s is not an int64", n.String()))
	}
	i := int64(f)
	return &i, nil
}
