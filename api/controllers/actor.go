package controllers

import (
	"net/http"

	"github.com/angelmondragon/dealercrm-backend/api/middleware"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
)

func actorFromRequest(r *http.Request) (access.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}
