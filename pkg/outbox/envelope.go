package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is bumped whenever a consumer-visible field changes shape.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event. Nil for anonymous intake.
type ActorRef struct {
	UserID   uuid.UUID  `json:"userId"`
	DealerID *uuid.UUID `json:"dealerId,omitempty"`
	Role     string     `json:"role,omitempty"`
}

// PayloadEnvelope is what lands in outbox_events.payload and, unchanged, in
// the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes no consumer
// could use: unknown versions, missing ids, or no data.
func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	case env.EventID == "":
		return PayloadEnvelope{}, errors.New("envelope missing eventId")
	case len(env.Data) == 0 || string(env.Data) == "null":
		return PayloadEnvelope{}, errors.New("envelope missing data")
	}
	return env, nil
}
