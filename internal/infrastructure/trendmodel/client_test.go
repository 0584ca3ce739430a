package trendmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddwtrends/internal/domain"
)

func TestEncodeBatchSplitsAndPreservesOrder(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/encode", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req encodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.LessOrEqual(t, len(req.Abstracts), 2)

		resp := encodeResponse{}
		for i := range req.Abstracts {
			resp.Results = append(resp.Results, domain.TrendScores{
				"covid_related": float64(i),
			})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 2)
	scores, err := client.EncodeBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0.0, scores[2]["covid_related"])
}

func TestEncodeBatchLengthMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(encodeResponse{}))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0)
	_, err := client.EncodeBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestEncodeBatchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 8)
	_, err := client.EncodeBatch(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "unexpected status")
}

func TestEncodeBatchEmptyEndpoint(t *testing.T) {
	t.Parallel()

	client := NewClient("", "", 8)
	_, err := client.EncodeBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
}
