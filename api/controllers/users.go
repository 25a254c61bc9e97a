package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/users"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

type createUserRequest struct {
	DealerID  *uuid.UUID `json:"dealer_id"`
	Email     string     `json:"email" validate:"required,email,max=254"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"max=100"`
	Role      string     `json:"role" validate:"required,role"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

func ListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), users.ListParams{Actor: actor, DealerID: dealerID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"users": list})
	}
}

// CreateUser provisions an account and returns its one-time temporary
// password.
func CreateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), actor, users.CreateUserInput{
			DealerID:  body.DealerID,
			Email:     body.Email,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Role:      body.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func ChangeUserRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, userID, err := actorAndUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body changeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.ChangeRole(r.Context(), actor, userID, body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func SetUserActive(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, userID, err := actorAndUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body activeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.SetActive(r.Context(), actor, userID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func actorAndUser(r *http.Request) (access.Actor, uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return access.Actor{}, uuid.Nil, err
	}
	userID, err := validators.PathUUID(r, "userId")
	if err != nil {
		return access.Actor{}, uuid.Nil, err
	}
	return actor, userID, nil
}
