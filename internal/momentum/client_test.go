package momentum

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpilot/quantpilot/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MomentumConfig{
		BaseURL: srv.URL,
		APIKey:  "test-token",
		Timeout: 2 * time.Second,
	})
}

func TestGetMomentum(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/momentum", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		json.NewEncoder(w).Encode(map[string]any{"symbol": "AAPL", "momentum": 2.35})
	}))

	got, err := client.GetMomentum(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 2.35, got, 1e-9)
}

func TestGetMomentumServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	got, err := client.GetMomentum(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Zero(t, got)
}

func TestGetMomentumUnreachable(t *testing.T) {
	client := NewClient(config.MomentumConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 500 * time.Millisecond,
	})

	_, err := client.GetMomentum(context.Background(), "BTCUSDT")
	require.Error(t, err)
}
