// Package adapter provides clients for the remote leaderboard API.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/leaderboard-collector/internal/errors"
	"github.com/leaderboard-collector/internal/types"
)

// DefaultBaseURL is the public Elixir points API
const DefaultBaseURL = "https://api.points.elixir.xyz"

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// ElixirClient fetches leaderboard pages from the Elixir points API
type ElixirClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewElixirClient creates a new points API client
func NewElixirClient(baseURL string, timeout time.Duration) *ElixirClient {
	return NewElixirClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewElixirClientWithHTTP creates a client on top of an existing http.Client
func NewElixirClientWithHTTP(baseURL string, httpClient *http.Client) *ElixirClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ElixirClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// PageURL builds the scores URL for one page
func (c *ElixirClient) PageURL(first, offset int) string {
	q := url.Values{}
	q.Set("first", strconv.Itoa(first))
	q.Set("offset", strconv.Itoa(offset))
	return c.baseURL + "/api/scores?" + q.Encode()
}

// FetchPage requests `first` records starting at `offset`
func (c *ElixirClient) FetchPage(ctx context.Context, first, offset int) (*types.LeaderboardPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(first, offset), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError(offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.NewHTTPStatusError(offset, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError(offset, err)
	}

	var page types.LeaderboardPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("page at offset %d", offset), err)
	}
	if page.Ranks == nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("page at offset %d", offset), errors.New("response has no ranks array"))
	}

	return &page, nil
}
