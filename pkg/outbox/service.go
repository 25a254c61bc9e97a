package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

// DomainEvent is one state change to record. AggregateType may be left empty;
// it is derived from EventType.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

// Emitter writes domain events inside the caller's transaction, so an event
// exists if and only if its mutation committed.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo  *Repository
	logg  *logger.Logger
	newID func() uuid.UUID
	now   func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		logg:  logg,
		newID: uuid.New,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("outbox emit requires a transaction")
	}
	row, err := s.row(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return fmt.Errorf("insert outbox %s: %w", row.EventType, err)
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

func (s *Service) row(event DomainEvent) (models.OutboxEvent, error) {
	aggregate := event.EventType.Aggregate()
	if aggregate == "" {
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox event type %q", event.EventType)
	}
	if event.AggregateType != "" && event.AggregateType != aggregate {
		return models.OutboxEvent{}, fmt.Errorf("event %s belongs to %s, not %s", event.EventType, aggregate, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, fmt.Errorf("event %s missing aggregate id", event.EventType)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	id := s.newID()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: occurred,
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: aggregate,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     occurred,
	}, nil
}
