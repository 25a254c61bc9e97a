package enums

import "fmt"

// OutboxAggregateType is the entity an event is about. The publisher uses the
// aggregate id as the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateLead   OutboxAggregateType = "lead"
	AggregateDealer OutboxAggregateType = "dealer"
	AggregateUser   OutboxAggregateType = "user"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateLead, AggregateDealer, AggregateUser:
		return true
	}
	return false
}

type OutboxEventType string

const (
	EventLeadCreated       OutboxEventType = "lead_created"
	EventLeadStatusChanged OutboxEventType = "lead_status_changed"
	EventLeadAssigned      OutboxEventType = "lead_assigned"
	EventLeadArchived      OutboxEventType = "lead_archived"
	EventDealerActivated   OutboxEventType = "dealer_activated"
	EventDealerDeactivated OutboxEventType = "dealer_deactivated"
	EventUserRoleChanged   OutboxEventType = "user_role_changed"
	EventUserActivated     OutboxEventType = "user_activated"
	EventUserDeactivated   OutboxEventType = "user_deactivated"
)

// eventAggregates pins each event type to the one aggregate it may describe.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventLeadCreated:       AggregateLead,
	EventLeadStatusChanged: AggregateLead,
	EventLeadAssigned:      AggregateLead,
	EventLeadArchived:      AggregateLead,
	EventDealerActivated:   AggregateDealer,
	EventDealerDeactivated: AggregateDealer,
	EventUserRoleChanged:   AggregateUser,
	EventUserActivated:     AggregateUser,
	EventUserDeactivated:   AggregateUser,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e belongs to, or "" when unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid outbox event type %q", value)
	}
	return e, nil
}
