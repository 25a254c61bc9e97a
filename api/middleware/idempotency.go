package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/dealercrm-backend/pkg/redis"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255

	defaultIdempotencyTTL = 24 * time.Hour
	intakeIdempotencyTTL  = 7 * 24 * time.Hour
)

// idempotentRoute matches chi route patterns such as
// "/api/v1/leads/{leadId}/transition". An empty suffix means exact match on
// prefix.
type idempotentRoute struct {
	method   string
	prefix   string
	suffix   string
	ttl      time.Duration
	optional bool
}

func (r idempotentRoute) matches(method, pattern string) bool {
	if r.method != method {
		return false
	}
	if r.suffix == "" {
		return pattern == r.prefix
	}
	return strings.HasPrefix(pattern, r.prefix) && strings.HasSuffix(pattern, r.suffix)
}

var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, prefix: "/api/v1/leads", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/leads/", suffix: "/transition", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/leads/", suffix: "/assign", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/users", ttl: defaultIdempotencyTTL},
	// Website forms may not send a key; replay protection is skipped then.
	{method: http.MethodPost, prefix: "/api/public/dealers/", suffix: "/leads", ttl: intakeIdempotencyTTL, optional: true},
}

// IdempotencyStore is the Redis surface used for replay records.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// storedResponse is what a retry gets back. Body is base64 in JSON.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

type idempotency struct {
	store IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response when a mapped route is retried
// with the same Idempotency-Key and body. A different body under the same key
// is rejected with IDEMPOTENCY_KEY_REUSED. Server errors are not remembered
// so the caller can retry them.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	mw := &idempotency{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := lookupRoute(r.Method, routePattern(r))
			if !ok || isNilStore(store) {
				next.ServeHTTP(w, r)
				return
			}
			mw.serve(w, r, next, route)
		})
	}
}

func (m *idempotency) serve(w http.ResponseWriter, r *http.Request, next http.Handler, route idempotentRoute) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "" && route.optional:
		next.ServeHTTP(w, r)
		return
	case clientKey == "":
		m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	case len(clientKey) > maxIdempotencyKeyLen:
		m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		m.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	key := m.store.IdempotencyKey(requestScope(r), clientKey)
	hash := fingerprint(body)

	prior, err := m.lookup(ctx, key)
	if err != nil {
		m.fail(ctx, w, err)
		return
	}
	if prior != nil {
		if prior.RequestHash != hash {
			m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
			return
		}
		prior.replay(w)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	m.remember(ctx, key, route.ttl, storedResponse{
		Status:      capture.statusCode(),
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		RequestHash: hash,
	})
}

func (m *idempotency) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (m *idempotency) remember(ctx context.Context, key string, ttl time.Duration, resp storedResponse) {
	if resp.Status >= http.StatusInternalServerError {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		m.logError(ctx, "marshal idempotency record", err)
		return
	}
	// SetNX: a concurrent duplicate that finished first wins.
	if _, err := m.store.SetNX(ctx, key, string(payload), ttl); err != nil {
		m.logError(ctx, "persist idempotency record", err)
	}
}

func (m *idempotency) fail(ctx context.Context, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, m.logg, w, err)
}

func (m *idempotency) logError(ctx context.Context, msg string, err error) {
	if m.logg != nil {
		m.logg.Error(ctx, msg, err)
	}
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// requestScope keeps keys from colliding across actors, dealers and paths.
func requestScope(r *http.Request) string {
	ctx := r.Context()
	return strings.Join([]string{
		UserIDFromContext(ctx),
		DealerIDFromContext(ctx),
		r.Method,
		r.URL.Path,
	}, "|")
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// routePattern prefers chi's pattern. Inside a mounted group that pattern is
// still partial ("/api/v1/*"), so the concrete path is used instead.
func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	if path := strings.TrimSuffix(r.URL.Path, "/"); path != "" {
		return path
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	route, ok := lookupRoute(method, pattern)
	return route.ttl, ok
}

func lookupRoute(method, pattern string) (idempotentRoute, bool) {
	if pattern == "" {
		return idempotentRoute{}, false
	}
	for _, route := range idempotentRoutes {
		if route.matches(method, pattern) {
			return route, true
		}
	}
	return idempotentRoute{}, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// isNilStore treats a typed nil client as absent so the router can run
// without Redis in tests.
func isNilStore(store IdempotencyStore) bool {
	if store == nil {
		return true
	}
	client, ok := store.(*pkgredis.Client)
	return ok && client == nil
}
