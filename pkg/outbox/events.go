package outbox

import (
	"time"

	"github.com/google/uuid"
)

// LeadCreatedEvent is emitted once per lead from the creation transaction.
type LeadCreatedEvent struct {
	LeadID     uuid.UUID `json:"leadId"`
	DealerID   uuid.UUID `json:"dealerId"`
	Source     string    `json:"source"`
	Agent      string    `json:"agent,omitempty"`
	Consent    bool      `json:"consent"`
	SessionKey string    `json:"sessionKey,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type LeadStatusChangedEvent struct {
	LeadID     uuid.UUID  `json:"leadId"`
	DealerID   uuid.UUID  `json:"dealerId"`
	FromStatus string     `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	ChangedAt  time.Time  `json:"changedAt"`
}

type LeadAssignedEvent struct {
	LeadID     uuid.UUID  `json:"leadId"`
	DealerID   uuid.UUID  `json:"dealerId"`
	FromUserID *uuid.UUID `json:"fromUserId,omitempty"`
	ToUserID   uuid.UUID  `json:"toUserId"`
}

type LeadArchivedEvent struct {
	LeadID     uuid.UUID `json:"leadId"`
	DealerID   uuid.UUID `json:"dealerId"`
	ArchivedAt time.Time `json:"archivedAt"`
}

type DealerActiveChangedEvent struct {
	DealerID uuid.UUID `json:"dealerId"`
	Slug     string    `json:"slug"`
	Active   bool      `json:"active"`
}

type UserRoleChangedEvent struct {
	UserID   uuid.UUID  `json:"userId"`
	DealerID *uuid.UUID `json:"dealerId,omitempty"`
	FromRole string     `json:"fromRole"`
	ToRole   string     `json:"toRole"`
}

type UserActiveChangedEvent struct {
	UserID   uuid.UUID  `json:"userId"`
	DealerID *uuid.UUID `json:"dealerId,omitempty"`
	Active   bool       `json:"active"`
}
