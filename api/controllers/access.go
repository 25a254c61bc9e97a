package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/google/uuid"
)

type evaluateRequest struct {
	Action   string             `json:"action" validate:"required"`
	Resource evaluateResourceIn `json:"resource"`
}

type evaluateResourceIn struct {
	Type       string     `json:"type" validate:"required"`
	DealerID   *uuid.UUID `json:"dealer_id"`
	OwnerID    *uuid.UUID `json:"owner_id"`
	TargetRole string     `json:"target_role"`
}

type evaluateResponse struct {
	Decision access.Decision `json:"decision"`
}

// AccessEvaluate answers whether the caller may perform an action on a
// described resource. Unknown actions and resource types are denied, not
// rejected.
func AccessEvaluate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body evaluateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resource := access.Resource{
			Type:     access.ResourceType(strings.TrimSpace(body.Resource.Type)),
			DealerID: body.Resource.DealerID,
			OwnerID:  body.Resource.OwnerID,
		}
		if raw := strings.TrimSpace(body.Resource.TargetRole); raw != "" {
			role, err := enums.ParseRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target_role"))
				return
			}
			resource.TargetRole = role
		}

		decision := access.Evaluate(actor, access.Action(strings.TrimSpace(body.Action)), resource)
		responses.WriteSuccess(w, evaluateResponse{Decision: decision})
	}
}
