package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

// OutboxEvent is inserted in the same transaction as the lead, dealer or user
// change it describes. The publisher sets PublishedAt; failures bump
// AttemptCount until the row is exhausted.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// LastAttempt reports whether one more failure exhausts maxAttempts.
func (e OutboxEvent) LastAttempt(maxAttempts int) bool {
	return maxAttempts > 0 && e.AttemptCount+1 >= maxAttempts
}
