package leads

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

// Attribution is the marketing snapshot captured when a lead is created.
type Attribution struct {
	Source      string `json:"source"`
	Agent       string `json:"agent"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	GCLID       string `json:"gclid"`
}

// Contact holds the customer's contact fields. At least one must be present.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c Contact) normalized() Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: strings.TrimSpace(c.Email),
	}
}

func (c Contact) empty() bool {
	return c.Name == "" && c.Phone == "" && c.Email == ""
}

// CreateLeadInput is shared by the public intake and staff creation paths.
// DealerID is ignored on public intake, where the dealer slug decides.
type CreateLeadInput struct {
	DealerID    *uuid.UUID
	VehicleID   *uuid.UUID
	Contact     Contact
	Message     string
	Attribution Attribution
	Consent     bool
	SessionKey  string
}

// TransitionInput moves a lead to Status if ExpectedVersion still matches.
type TransitionInput struct {
	LeadID          uuid.UUID
	Status          string
	ExpectedVersion string
	Notes           *string
	Actor           access.Actor
}

type AssignInput struct {
	LeadID       uuid.UUID
	TargetUserID uuid.UUID
	Actor        access.Actor
}

// ListParams filter the visible lead population.
type ListParams struct {
	Actor      access.Actor
	DealerID   *uuid.UUID
	Status     string
	AssignedTo *uuid.UUID
	Source     string
	Limit      int
	Cursor     string
}

type LeadDTO struct {
	ID              uuid.UUID        `json:"id"`
	DealerID        uuid.UUID        `json:"dealer_id"`
	VehicleID       *uuid.UUID       `json:"vehicle_id,omitempty"`
	AssignedTo      *uuid.UUID       `json:"assigned_to,omitempty"`
	Name            *string          `json:"name,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	Email           *string          `json:"email,omitempty"`
	Message         string           `json:"message"`
	Attribution     Attribution      `json:"attribution"`
	Consent         bool             `json:"consent"`
	Status          enums.LeadStatus `json:"status"`
	Version         string           `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	StatusUpdatedAt time.Time        `json:"status_updated_at"`
}

type LeadList struct {
	Leads      []LeadDTO `json:"leads"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type HistoryEntryDTO struct {
	ID         uuid.UUID         `json:"id"`
	FromStatus *enums.LeadStatus `json:"from_status"`
	ToStatus   enums.LeadStatus  `json:"to_status"`
	ChangedBy  *uuid.UUID        `json:"changed_by,omitempty"`
	Notes      *string           `json:"notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func FromModel(l *models.Lead) *LeadDTO {
	if l == nil {
		return nil
	}
	return &LeadDTO{
		ID:         l.ID,
		DealerID:   l.DealerID,
		VehicleID:  l.VehicleID,
		AssignedTo: l.AssignedTo,
		Name:       l.Name,
		Phone:      l.Phone,
		Email:      l.Email,
		Message:    l.Message,
		Attribution: Attribution{
			Source:      l.Source,
			Agent:       l.Agent,
			UTMSource:   l.UTMSource,
			UTMMedium:   l.UTMMedium,
			UTMCampaign: l.UTMCampaign,
			GCLID:       l.GCLID,
		},
		Consent:         l.Consent,
		Status:          l.Status,
		Version:         FormatVersion(l.StatusUpdatedAt),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		StatusUpdatedAt: l.StatusUpdatedAt,
	}
}

func historyFromModel(h models.LeadStatusHistory) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:         h.ID,
		FromStatus: h.FromStatus,
		ToStatus:   h.ToStatus,
		ChangedBy:  h.ChangedBy,
		Notes:      h.Notes,
		CreatedAt:  h.CreatedAt,
	}
}

// versionPrecision matches Postgres timestamp resolution so tokens survive a
// database round trip.
const versionPrecision = time.Microsecond

// FormatVersion renders a lead's status_updated_at as its version token.
func FormatVersion(t time.Time) string {
	return t.UTC().Truncate(versionPrecision).Format(time.RFC3339Nano)
}

// ParseVersion decodes a version token produced by FormatVersion.
func ParseVersion(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid version token: %w", err)
	}
	return t.UTC().Truncate(versionPrecision), nil
}

func sameVersion(stored, expected time.Time) bool {
	return stored.UTC().Truncate(versionPrecision).Equal(expected)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
