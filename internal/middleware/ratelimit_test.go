package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remote, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	req.RemoteAddr = remote
	if user != "" {
		req = req.WithContext(WithUserID(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	handler := RateLimit(NewRateLimiter(10, 10), nil)(okHandler())

	for i := range 10 {
		if rec := doRequest(handler, "192.168.1.1:1234", ""); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rejected := 0
	handler := RateLimit(NewRateLimiter(10, 5), func(*http.Request) { rejected++ })(okHandler())

	for range 5 {
		doRequest(handler, "192.168.1.1:1234", "")
	}

	rec := doRequest(handler, "192.168.1.1:1234", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rejected != 1 {
		t.Errorf("expected reject callback once, got %d", rejected)
	}
}

func TestRateLimiterKeysByUserThenIP(t *testing.T) {
	handler := RateLimit(NewRateLimiter(10, 2), nil)(okHandler())

	for range 2 {
		doRequest(handler, "10.0.0.1:1", "alice")
	}
	if rec := doRequest(handler, "10.0.0.1:1", "alice"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("alice: expected 429, got %d", rec.Code)
	}
	// Same IP, different user.
	if rec := doRequest(handler, "10.0.0.1:1", "bob"); rec.Code != http.StatusOK {
		t.Errorf("bob: expected 200, got %d", rec.Code)
	}
	// Anonymous from the same IP has its own bucket.
	if rec := doRequest(handler, "10.0.0.1:1", ""); rec.Code != http.StatusOK {
		t.Errorf("anonymous: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	ctx := context.Background()

	if !rl.Allow(ctx, "k").Allowed {
		t.Fatal("first request should pass")
	}
	if rl.Allow(ctx, "k").Allowed {
		t.Fatal("second immediate request should be limited")
	}
	time.Sleep(5 * time.Millisecond)
	if !rl.Allow(ctx, "k").Allowed {
		t.Fatal("expected refill after waiting")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	rl.Allow(context.Background(), "stale")
	if rl.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", rl.Len())
	}
	rl.cleanup(-time.Second)
	if rl.Len() != 0 {
		t.Fatalf("expected 0 buckets after cleanup, got %d", rl.Len())
	}
}
