package controllers

import (
	"net/http"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

type createDealerRequest struct {
	Slug string `json:"slug" validate:"required,slug"`
	Name string `json:"name" validate:"required,max=200"`
}

func AdminListDealers(svc dealers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dealers": list})
	}
}

func AdminCreateDealer(svc dealers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createDealerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealer, err := svc.Create(r.Context(), actor, body.Slug, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dealer)
	}
}

// AdminSetDealerActive toggles a dealer. Deactivation hides the dealer's
// public endpoints and locks out its staff on their next request.
func AdminSetDealerActive(svc dealers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealerID, err := validators.PathUUID(r, "dealerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body activeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealer, err := svc.SetActive(r.Context(), actor, dealerID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dealer)
	}
}
