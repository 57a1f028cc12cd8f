// Package types provides the leaderboard record types shared by the fetcher and the sinks.
package types

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Rank is one leaderboard entry as received from the points API.
// Numeric fields stay as json.Number so nothing is narrowed before
// normalization, and the exact source bytes are kept for re-emission.
type Rank struct {
	Date                         *string      `json:"date"`
	Name                         *string      `json:"name"`
	Chest                        *bool        `json:"chest,omitempty"`
	Total                        *json.Number `json:"total"`
	TotalPointsEarnedByTVL       *json.Number `json:"total_points_earned_by_tvl"`
	TotalTVLUSD                  *json.Number `json:"total_tvl_usd"`
	TotalDirectReferrals         *json.Number `json:"total_direct_referrals,omitempty"`
	TotalIndirectReferrals       *json.Number `json:"total_indirect_referrals,omitempty"`
	TotalPointsEarnedByReferrals *json.Number `json:"total_points_earned_by_referrals,omitempty"`
	Rank                         *json.Number `json:"rank"`

	raw json.RawMessage
}

type rankFields Rank

// numericFields are decoded into json.Number, which also accepts a quoted
// numeric string. Those keys must hold a bare number or null.
var numericFields = []string{
	"total",
	"total_points_earned_by_tvl",
	"total_tvl_usd",
	"total_direct_referrals",
	"total_indirect_referrals",
	"total_points_earned_by_referrals",
	"rank",
}

// UnmarshalJSON decodes the known fields and keeps a copy of the source object.
func (r *Rank) UnmarshalJSON(data []byte) error {
	var fields rankFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if err := checkNumericTokens(data); err != nil {
		return err
	}
	*r = Rank(fields)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func checkNumericTokens(data []byte) error {
	var tokens map[string]json.RawMessage
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	for key, tok := range tokens {
		tok = bytes.TrimSpace(tok)
		if len(tok) == 0 || tok[0] != '"' {
			continue
		}
		// encoding/json matches struct keys case-insensitively
		for _, field := range numericFields {
			if strings.EqualFold(key, field) {
				return &json.UnmarshalTypeError{
					Value:  "string",
					Type:   reflect.TypeOf(json.Number("")),
					Struct: "Rank",
					Field:  field,
				}
			}
		}
	}
	return nil
}

// MarshalJSON re-emits the source object when there is one.
func (r Rank) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(rankFields(r))
}

// Raw returns the JSON object the record was decoded from, or nil.
func (r Rank) Raw() json.RawMessage {
	return r.raw
}

// DisplayName returns the participant name or "" when absent
func (r Rank) DisplayName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// LeaderboardPage is one response of GET /api/scores.
// TotalCount is the size of the full result set, not of this page.
type LeaderboardPage struct {
	Ranks      []Rank `json:"ranks"`
	TotalCount int    `json:"totalCount"`
}
