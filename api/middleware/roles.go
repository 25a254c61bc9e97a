package middleware

import (
	"net/http"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

// RequireRoute rejects actors whose role is not on route's allow-list.
// Must run after Auth.
func RequireRoute(route access.Route, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !access.CanAccessRoute(actor.Role, route) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePermissionDenied, "role not permitted").WithDetails(map[string]any{
					"route": string(route),
				}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
