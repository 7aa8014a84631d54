package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	// A fresh bucket admits a full second worth of requests, then denies.
	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.allow(rl.userBuckets, "user-1", 5) {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("allowed = %d, want 5", allowed)
	}

	// A different key has its own bucket.
	if !rl.allow(rl.userBuckets, "user-2", 5) {
		t.Error("second user should not share the first user's bucket")
	}
}

func TestRateLimiterIPMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := rl.IPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < ipRequestsPerSecond+3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("final status = %d, want 429", last)
	}
}
