package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/pagination"
)

const maxMessageLength = 2000

type contactRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Phone string `json:"phone" validate:"max=40"`
	Email string `json:"email" validate:"max=254"`
}

type attributionRequest struct {
	Source      string `json:"source" validate:"max=100"`
	Agent       string `json:"agent" validate:"max=100"`
	UTMSource   string `json:"utm_source" validate:"max=200"`
	UTMMedium   string `json:"utm_medium" validate:"max=200"`
	UTMCampaign string `json:"utm_campaign" validate:"max=200"`
	GCLID       string `json:"gclid" validate:"max=200"`
}

type createLeadRequest struct {
	DealerID    *uuid.UUID         `json:"dealer_id"`
	VehicleID   *uuid.UUID         `json:"vehicle_id"`
	Contact     contactRequest     `json:"contact"`
	Message     string             `json:"message"`
	Attribution attributionRequest `json:"attribution"`
	Consent     bool               `json:"consent"`
	SessionKey  string             `json:"session_key" validate:"max=200"`
}

func (req createLeadRequest) input() leads.CreateLeadInput {
	return leads.CreateLeadInput{
		DealerID:  req.DealerID,
		VehicleID: req.VehicleID,
		Contact: leads.Contact{
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
			Email: req.Contact.Email,
		},
		Message: validators.SanitizeString(req.Message, maxMessageLength),
		Attribution: leads.Attribution{
			Source:      req.Attribution.Source,
			Agent:       req.Attribution.Agent,
			UTMSource:   req.Attribution.UTMSource,
			UTMMedium:   req.Attribution.UTMMedium,
			UTMCampaign: req.Attribution.UTMCampaign,
			GCLID:       req.Attribution.GCLID,
		},
		Consent:    req.Consent,
		SessionKey: req.SessionKey,
	}
}

type transitionRequest struct {
	Status  string  `json:"status" validate:"required,lead_status"`
	Version string  `json:"version" validate:"required"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

type assignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// PublicCreateLead accepts a website form submission for the dealer in the
// URL. Attribution is taken from the body as submitted.
func PublicCreateLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createLeadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := body.input()
		input.DealerID = nil

		lead, err := svc.CreatePublic(r.Context(), chi.URLParam(r, "slug"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

func CreateLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createLeadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.Create(r.Context(), actor, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

// ListLeads returns one page of the caller's visible leads, newest first.
func ListLeads(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
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
		assignedTo, err := validators.ParseQueryUUID(r, "assigned_to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		list, err := svc.List(r.Context(), leads.ListParams{
			Actor:      actor,
			DealerID:   dealerID,
			Status:     strings.TrimSpace(query.Get("status")),
			AssignedTo: assignedTo,
			Source:     strings.TrimSpace(query.Get("source")),
			Limit:      limit,
			Cursor:     strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, leadID, err := actorAndLead(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := svc.Get(r.Context(), actor, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func LeadHistory(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, leadID, err := actorAndLead(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), actor, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"history": history})
	}
}

// TransitionLead moves a lead to a new status if the supplied version still
// matches; a stale version yields 409 with the current version in details.
func TransitionLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, leadID, err := actorAndLead(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.Transition(r.Context(), leads.TransitionInput{
			LeadID:          leadID,
			Status:          body.Status,
			ExpectedVersion: body.Version,
			Notes:           body.Notes,
			Actor:           actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func AssignLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, leadID, err := actorAndLead(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		lead, err := svc.Assign(r.Context(), leads.AssignInput{LeadID: leadID, TargetUserID: target, Actor: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func ArchiveLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, leadID, err := actorAndLead(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Archive(r.Context(), actor, leadID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

func actorAndLead(r *http.Request) (access.Actor, uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return access.Actor{}, uuid.Nil, err
	}
	leadID, err := validators.PathUUID(r, "leadId")
	if err != nil {
		return access.Actor{}, uuid.Nil, err
	}
	return actor, leadID, nil
}
