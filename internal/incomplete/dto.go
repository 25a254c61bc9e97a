package incomplete

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

// TrackInput is one interaction with a public intake form. SessionKey may be
// empty, in which case it is derived from the contact fields.
type TrackInput struct {
	SessionKey      string
	Name            string
	Phone           string
	Email           string
	FieldsCompleted []string
	FormStep        string
	Source          string
}

type WorklistParams struct {
	Actor      access.Actor
	DealerID   *uuid.UUID
	Priority   string
	HasContact *bool
	Limit      int
}

type SessionDTO struct {
	ID              uuid.UUID      `json:"id"`
	DealerID        uuid.UUID      `json:"dealer_id"`
	SessionKey      string         `json:"session_key"`
	Name            *string        `json:"name,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	Email           *string        `json:"email,omitempty"`
	FormStep        enums.FormStep `json:"form_step"`
	FieldsCompleted []string       `json:"fields_completed"`
	Source          string         `json:"source"`
	LastActivity    time.Time      `json:"last_activity"`
	ConvertedAt     *time.Time     `json:"converted_at,omitempty"`
}

// WorklistItem is a session annotated for outreach.
type WorklistItem struct {
	SessionDTO
	Priority     enums.Priority `json:"priority"`
	HasContact   bool           `json:"has_contact"`
	RecencyLabel string         `json:"recency_label"`
}

type Worklist struct {
	Items       []WorklistItem         `json:"items"`
	Counts      map[enums.Priority]int `json:"counts"`
	GeneratedAt time.Time              `json:"generated_at"`
}

func sessionFromModel(s *models.IncompleteLeadSession) SessionDTO {
	fields := []string(s.FieldsCompleted)
	if fields == nil {
		fields = []string{}
	}
	return SessionDTO{
		ID:              s.ID,
		DealerID:        s.DealerID,
		SessionKey:      s.SessionKey,
		Name:            s.Name,
		Phone:           s.Phone,
		Email:           s.Email,
		FormStep:        s.FormStep,
		FieldsCompleted: fields,
		Source:          s.Source,
		LastActivity:    s.LastActivity,
		ConvertedAt:     s.ConvertedAt,
	}
}
