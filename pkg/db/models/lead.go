package models

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

// Lead is a submitted prospect. Attribution columns are write-once; the
// database rejects updates to them.
type Lead struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	DealerID   uuid.UUID  `gorm:"column:dealer_id;type:uuid;not null"`
	VehicleID  *uuid.UUID `gorm:"column:vehicle_id;type:uuid"`
	AssignedTo *uuid.UUID `gorm:"column:assigned_to;type:uuid"`

	Name    *string `gorm:"column:name"`
	Phone   *string `gorm:"column:phone"`
	Email   *string `gorm:"column:email"`
	Message string  `gorm:"column:message;not null"`

	Source      string `gorm:"column:source;not null"`
	Agent       string `gorm:"column:agent;not null"`
	UTMSource   string `gorm:"column:utm_source;not null"`
	UTMMedium   string `gorm:"column:utm_medium;not null"`
	UTMCampaign string `gorm:"column:utm_campaign;not null"`
	GCLID       string `gorm:"column:gclid;not null"`
	Consent     bool   `gorm:"column:consent;not null"`

	Status          enums.LeadStatus `gorm:"column:status;not null"`
	ArchivedAt      *time.Time       `gorm:"column:archived_at"`
	CreatedAt       time.Time        `gorm:"column:created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at"`
	StatusUpdatedAt time.Time        `gorm:"column:status_updated_at"`
}
