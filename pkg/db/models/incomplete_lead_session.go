package models

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IncompleteLeadSession is a partially completed intake form keyed by a
// session key unique within the dealer.
type IncompleteLeadSession struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	DealerID        uuid.UUID                   `gorm:"column:dealer_id;type:uuid;not null"`
	SessionKey      string                      `gorm:"column:session_key;not null"`
	Name            *string                     `gorm:"column:name"`
	Phone           *string                     `gorm:"column:phone"`
	Email           *string                     `gorm:"column:email"`
	FormStep        enums.FormStep              `gorm:"column:form_step;not null"`
	FieldsCompleted datatypes.JSONSlice[string] `gorm:"column:fields_completed;type:jsonb;not null"`
	Source          string                      `gorm:"column:source;not null"`
	LastActivity    time.Time                   `gorm:"column:last_activity"`
	ConvertedAt     *time.Time                  `gorm:"column:converted_at"`
	LeadID          *uuid.UUID                  `gorm:"column:lead_id;type:uuid"`
	CreatedAt       time.Time                   `gorm:"column:created_at"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at"`
}

// HasContact reports whether a phone or email has been captured.
func (s IncompleteLeadSession) HasContact() bool {
	return nonEmpty(s.Phone) || nonEmpty(s.Email)
}

func nonEmpty(v *string) bool {
	return v != nil && *v != ""
}
