package analytics

import (
	"net/http"
	"time"

	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// funnelParams reads ?dealer_id=, and either ?from=&to= (RFC 3339) or
// ?preset=. The service decides whether actor may name the dealer.
func funnelParams(r *http.Request, actor access.Actor, now time.Time) (funnel.Params, error) {
	dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
	if err != nil {
		return funnel.Params{}, err
	}
	q := r.URL.Query()
	window, err := funnel.ResolveWindow(q.Get("from"), q.Get("to"), q.Get("preset"), now)
	if err != nil {
		return funnel.Params{}, err
	}
	return funnel.Params{Actor: actor, DealerID: dealerID, Window: window}, nil
}
