package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 404: false, 408: true, 409: false, 429: true, 500: true, 503: true} {
		if got := IsRetryableHTTPStatus(code); got != want {
			t.Fatalf("IsRetryableHTTPStatus(%d)=%v want %v", code, got, want)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusForbidden, Header: http.Header{}}
	if IsRateLimited(resp) {
		t.Fatalf("plain 403 should not be rate limited")
	}
	resp.Header.Set("X-RateLimit-Remaining", "0")
	if !IsRateLimited(resp) {
		t.Fatalf("exhausted window should be rate limited")
	}
}

func TestLinearBackoff(t *testing.T) {
	if got := LinearBackoff(3, 100*time.Millisecond, 0); got != 300*time.Millisecond {
		t.Fatalf("LinearBackoff=%v", got)
	}
	if got := LinearBackoff(10, time.Second, 2*time.Second); got != 2*time.Second {
		t.Fatalf("capped LinearBackoff=%v", got)
	}
	if got := LinearBackoff(0, time.Second, 0); got != 0 {
		t.Fatalf("LinearBackoff(0)=%v", got)
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	if got := RetryAfterDuration(resp, time.Second, 5*time.Second); got != 5*time.Second {
		t.Fatalf("RetryAfterDuration=%v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 0); got != time.Second {
		t.Fatalf("RetryAfterDuration(nil)=%v", got)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected context error")
	}
}
