package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRetry(t *testing.T, srv *httptest.Server) ([]byte, int, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	return retryDo(context.Background(), srv.Client(), req)
}

func TestRetryDo_HonorsRetryAfterOn429(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	start := time.Now()
	body, status, err := doRetry(t, srv)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int64(2), hits.Load())
	assert.Less(t, time.Since(start), retryBaseDelay, "the upstream's zero window overrides the backoff")
}

func TestRetryDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := doRetry(t, srv)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int64(retryAttempts), hits.Load())
}

func TestRetryDo_NonRetryableReturnsFirstResponse(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer srv.Close()

	body, status, err := doRetry(t, srv)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "denied", string(body))
	assert.Equal(t, int64(1), hits.Load())
}

func TestRetryAfterDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"0", 0, true},
		{"2", 2 * time.Second, true},
		{" 3 ", 3 * time.Second, true},
		{"3600", retryAfterCap, true},
		{"-1", 0, false},
		{"", 0, false},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0, false},
	}

	for _, tt := range tests {
		got, ok := retryAfterDelay(tt.raw)
		assert.Equal(t, tt.ok, ok, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}
