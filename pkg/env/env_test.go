package env

import "testing"

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("DEALERCRM_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
	if got := Get("DEALERCRM_LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("prefixed key lookup failed, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("DEALERCRM_WORKER_ID", "  ")
	t.Setenv("WORKER_ID", "")
	if got := Get("WORKER_ID", "worker-0"); got != "worker-0" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("WORKER_ID", "bare")
	if got := Get("WORKER_ID", "worker-0"); got != "bare" {
		t.Fatalf("expected bare key, got %q", got)
	}
}
