package controllers

import (
	"net/http"

	"github.com/angelmondragon/dealercrm-backend/api/middleware"
	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

// authEndpoint runs fn and writes its result as the 200 envelope.
func authEndpoint(svc auth.Service, logg *logger.Logger, fn func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		out, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request) (any, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

// AuthRefresh rotates the refresh session bound to the bearer token. The
// bearer may already be expired; its signature must still verify.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request) (any, error) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), token, body.RefreshToken)
	})
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request) (any, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			return nil, err
		}
		return map[string]string{"status": "logged_out"}, nil
	})
}
