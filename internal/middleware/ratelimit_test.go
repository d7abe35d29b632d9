package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("request beyond limit was admitted")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first client denied")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("second client must have its own bucket")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("first client exceeded its bucket")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(60) // one token per second
	defer rl.Stop()

	for rl.allow("10.0.0.1") {
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("bucket should be empty")
	}

	// Backdate the refill stamp instead of sleeping.
	rl.mu.Lock()
	rl.clients["10.0.0.1"].lastRefill = time.Now().Add(-2 * time.Second)
	rl.mu.Unlock()

	if !rl.allow("10.0.0.1") {
		t.Fatal("elapsed time should have refilled tokens")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	handler := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/investigate", nil)
	req.RemoteAddr = "10.0.0.1:52341"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", rec.Code)
	}

	// Same client on a new connection shares the bucket.
	req2 := httptest.NewRequest(http.MethodGet, "/v1/investigate", nil)
	req2.RemoteAddr = "10.0.0.1:52999"

	rec2 := httptest.NewRecorder()
	handler(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After header, got %q", rec2.Header().Get("Retry-After"))
	}
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:41000"
	if got := clientIP(req); got != "192.168.1.9" {
		t.Fatalf("clientIP: got %q, want 192.168.1.9", got)
	}

	req.RemoteAddr = "unix-socket"
	if got := clientIP(req); got != "unix-socket" {
		t.Fatalf("clientIP fallback: got %q", got)
	}
}
