package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localDashboardOrigin = "http://localhost:3000"

// CORS allows the dashboard origins to call the API with credentials.
// A "*" entry is dropped: browsers refuse wildcard origins on credentialed
// requests, so it would only hide a misconfiguration.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(origins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, requestIDHeader, "X-Requested-With",
		},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader, "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func allowedOrigins(origins []string) []string {
	seen := make(map[string]struct{}, len(origins))
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || o == "*" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	if len(out) == 0 {
		return []string{localDashboardOrigin}
	}
	return out
}
