package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/api/validators"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type trackRequest struct {
	SessionKey      string   `json:"session_key" validate:"max=200"`
	Name            string   `json:"name" validate:"max=200"`
	Phone           string   `json:"phone" validate:"max=40"`
	Email           string   `json:"email" validate:"max=254"`
	FieldsCompleted []string `json:"fields_completed" validate:"max=50,dive,max=64"`
	FormStep        string   `json:"form_step" validate:"max=32"`
	Source          string   `json:"source" validate:"max=100"`
}

// PublicTrackIncomplete records partial form progress for an anonymous
// visitor.
func PublicTrackIncomplete(svc incomplete.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body trackRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Track(r.Context(), chi.URLParam(r, "slug"), incomplete.TrackInput{
			SessionKey:      body.SessionKey,
			Name:            body.Name,
			Phone:           body.Phone,
			Email:           body.Email,
			FieldsCompleted: body.FieldsCompleted,
			FormStep:        body.FormStep,
			Source:          body.Source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func IncompleteWorklist(svc incomplete.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := worklistParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.Worklist(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// IncompleteExport streams the filtered worklist as an XLSX workbook.
func IncompleteExport(svc incomplete.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := worklistParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename, body, err := svc.ExportWorklist(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAttachment(w, filename, xlsxContentType, body)
	}
}

func worklistParams(r *http.Request) (incomplete.WorklistParams, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return incomplete.WorklistParams{}, err
	}
	dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
	if err != nil {
		return incomplete.WorklistParams{}, err
	}
	hasContact, err := validators.ParseQueryBool(r, "has_contact")
	if err != nil {
		return incomplete.WorklistParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
	if err != nil {
		return incomplete.WorklistParams{}, err
	}
	return incomplete.WorklistParams{
		Actor:      actor,
		DealerID:   dealerID,
		Priority:   strings.TrimSpace(r.URL.Query().Get("priority")),
		HasContact: hasContact,
		Limit:      limit,
	}, nil
}
