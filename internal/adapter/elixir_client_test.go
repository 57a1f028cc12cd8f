package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leaderboard-collector/internal/errors"
)

func TestFetchPage(t *testing.T) {
	var gotPath, gotFirst, gotOffset string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFirst = r.URL.Query().Get("first")
		gotOffset = r.URL.Query().Get("offset")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ranks":[{"date":"2024-11-02","name":"a","rank":1},{"date":"2024-11-02","name":"b","rank":2}],"totalCount":12000}`))
	}))
	defer server.Close()

	client := NewElixirClient(server.URL+"/", 5*time.Second)
	page, err := client.FetchPage(context.Background(), 5000, 10000)
	require.NoError(t, err)

	assert.Equal(t, "/api/scores", gotPath)
	assert.Equal(t, "5000", gotFirst)
	assert.Equal(t, "10000", gotOffset)
	assert.Equal(t, 12000, page.TotalCount)
	require.Len(t, page.Ranks, 2)
	assert.Equal(t, "b", page.Ranks[1].DisplayName())
}

func TestPageURL(t *testing.T) {
	client := NewElixirClient("", time.Second)
	assert.Equal(t, "https://api.points.elixir.xyz/api/scores?first=5000&offset=0", client.PageURL(5000, 0))
}

func TestFetchPageErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category apperrors.ErrorCategory
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", category: apperrors.CategoryHTTPStatus},
		{name: "not found", status: http.StatusNotFound, body: "", category: apperrors.CategoryHTTPStatus},
		{name: "malformed body", status: http.StatusOK, body: `{"ranks":[`, category: apperrors.CategoryDecode},
		{name: "missing ranks", status: http.StatusOK, body: `{"totalCount":3}`, category: apperrors.CategoryDecode},
		{name: "wrong field type", status: http.StatusOK, body: `{"ranks":[{"chest":"yes"}],"totalCount":1}`, category: apperrors.CategoryDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewElixirClient(server.URL, 5*time.Second)
			page, err := client.FetchPage(context.Background(), 10, 5000)
			require.Error(t, err)
			assert.Nil(t, page)
			assert.True(t, apperrors.IsCategory(err, tt.category), "got %v", err)

			if tt.category == apperrors.CategoryHTTPStatus {
				catErr := apperrors.Categorize(err)
				assert.Equal(t, tt.status, catErr.StatusCode)
				assert.Equal(t, 5000, catErr.Details["offset"])
			}
		})
	}
}

func TestFetchPageEmptyRanksIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ranks":[],"totalCount":0}`))
	}))
	defer server.Close()

	page, err := NewElixirClient(server.URL, time.Second).FetchPage(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Ranks)
	assert.Equal(t, 0, page.TotalCount)
}

func TestFetchPageNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewElixirClient(url, time.Second).FetchPage(context.Background(), 10, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryProvider))
	assert.True(t, apperrors.IsRetryable(err))
}
