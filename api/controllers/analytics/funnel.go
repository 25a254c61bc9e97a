package analytics

import (
	"net/http"

	"github.com/angelmondragon/dealercrm-backend/api/middleware"
	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

// FunnelReport returns funnel counts and rates over the caller's visible
// leads. Reps see their own assignments only.
func FunnelReport(svc funnel.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funnel service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		params, err := funnelParams(r, actor, timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Aggregate(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
