package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadAssignment records each change of a lead's assignee.
type LeadAssignment struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	LeadID     uuid.UUID  `gorm:"column:lead_id;type:uuid;not null"`
	FromUserID *uuid.UUID `gorm:"column:from_user_id;type:uuid"`
	ToUserID   uuid.UUID  `gorm:"column:to_user_id;type:uuid;not null"`
	AssignedBy uuid.UUID  `gorm:"column:assigned_by;type:uuid;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}
