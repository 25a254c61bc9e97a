package models

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

// LeadStatusHistory is an append-only audit row. FromStatus is nil for the
// creation record; ChangedBy is nil when an anonymous intake channel created
// the lead.
type LeadStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	LeadID     uuid.UUID         `gorm:"column:lead_id;type:uuid;not null"`
	FromStatus *enums.LeadStatus `gorm:"column:from_status"`
	ToStatus   enums.LeadStatus  `gorm:"column:to_status;not null"`
	ChangedBy  *uuid.UUID        `gorm:"column:changed_by;type:uuid"`
	Notes      *string           `gorm:"column:notes"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (LeadStatusHistory) TableName() string {
	return "lead_status_history"
}
