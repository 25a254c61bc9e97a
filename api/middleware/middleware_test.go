package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDEchoesOrMints(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if seen != "abc-123" || resp.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected caller request id echoed, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected minted uuid for oversized id, got %q", got)
	}
}

func TestRequestIDRejectsUnsafeCharacters(t *testing.T) {
	var fromCtx string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc 123<script>")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	got := resp.Header().Get(requestIDHeader)
	if got == "abc 123<script>" || len(got) != 36 {
		t.Fatalf("expected unsafe id replaced, got %q", got)
	}
	if fromCtx != got {
		t.Fatalf("context id %q does not match header %q", fromCtx, got)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("expected internal error envelope, got %s", resp.Body.String())
	}
}

type recordingObserver struct {
	status int
	calls  int
}

func (o *recordingObserver) ObserveRequest(route, method string, status int, d time.Duration) {
	o.calls++
	o.status = status
}

func TestLoggingObservesStatus(t *testing.T) {
	obs := &recordingObserver{}
	handler := Logging(nil, obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if obs.calls != 1 || obs.status != http.StatusTeapot {
		t.Fatalf("expected one observation with 418, got %+v", obs)
	}
}

func TestAllowedOriginsNormalizes(t *testing.T) {
	got := allowedOrigins([]string{" https://crm.example.com/ ", "*", "https://crm.example.com", ""})
	if len(got) != 1 || got[0] != "https://crm.example.com" {
		t.Fatalf("unexpected origins %v", got)
	}
	if got := allowedOrigins(nil); len(got) != 1 || got[0] != localDashboardOrigin {
		t.Fatalf("expected local dashboard fallback, got %v", got)
	}
}

func TestCORSPreflightAllowsIdempotencyKey(t *testing.T) {
	handler := CORS([]string{"https://crm.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leads", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://crm.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}
}

func TestRecovererReRaisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
