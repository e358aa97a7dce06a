package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limited(t *testing.T, rps float64, burst int) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimit(ctx, rps, burst, discardLogger())(okHandler())
}

func TestRateLimit_RequestsWithinLimit_Pass(t *testing.T) {
	handler := limited(t, 10, 10)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "request %d should pass", i+1)
	}
}

func TestRateLimit_ExceedingBurst_Returns429(t *testing.T) {
	handler := limited(t, 1, 3)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/session/cart/items", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			assert.Contains(t, rr.Body.String(), "RATE_LIMITED")
			assert.Equal(t, "1", rr.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

func TestRateLimit_DifferentIPs_IndependentLimits(t *testing.T) {
	handler := limited(t, 1, 2)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_SlowRate_RetryAfterRoundsUp(t *testing.T) {
	store := newVisitorStore(0.25, 1, time.Minute)
	handler := rateLimit(store, discardLogger())(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "172.16.0.1:1"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if i == 1 {
			require.Equal(t, http.StatusTooManyRequests, rr.Code)
			assert.Equal(t, "4", rr.Header().Get("Retry-After"))
		}
	}
}

func TestVisitorStore_CleanupEvictsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newVisitorStore(1, 1, time.Minute)
	store.nowFunc = func() time.Time { return now }

	store.get("10.0.0.1")
	now = now.Add(30 * time.Second)
	store.get("10.0.0.2")

	now = now.Add(45 * time.Second)
	store.cleanup()

	assert.Equal(t, 1, store.len())
	_, kept := store.visitors["10.0.0.2"]
	assert.True(t, kept)
}

func TestVisitorStore_RunStopsOnCancel(t *testing.T) {
	store := newVisitorStore(1, 1, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.50"}, "10.0.0.1:1", "203.0.113.50"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.3"}, "10.0.0.1:1", "203.0.113.7"},
		{"forwarded garbage falls through", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.42"}, "10.0.0.1:1", "198.51.100.42"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.42"}, "10.0.0.1:1", "198.51.100.42"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1"},
		{"remote addr without port", nil, "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remote
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
