package access

import (
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/google/uuid"
)

// Scope is the lead population an actor may read. A nil DealerID means every
// dealer; a non-nil AssignedTo restricts the population to that assignee.
type Scope struct {
	DealerID   *uuid.UUID
	AssignedTo *uuid.UUID
}

// Global reports whether the scope spans all dealers.
func (s Scope) Global() bool {
	return s.DealerID == nil
}

// Contains reports whether a lead with the given dealer and assignee falls
// inside the scope.
func (s Scope) Contains(dealerID uuid.UUID, assignedTo *uuid.UUID) bool {
	if s.DealerID != nil && *s.DealerID != dealerID {
		return false
	}
	if s.AssignedTo != nil {
		return assignedTo != nil && *assignedTo == *s.AssignedTo
	}
	return true
}

// LeadVisibility derives the lead population actor may view. requested
// narrows a super admin to one dealer; for everyone else it must be empty or
// their own dealer.
func LeadVisibility(actor Actor, requested *uuid.UUID) (Scope, error) {
	if actor.Role == enums.RoleSuperAdmin {
		return Scope{DealerID: requested}, nil
	}
	if !actor.Role.IsValid() || actor.DealerID == nil {
		return Scope{}, pkgerrors.New(pkgerrors.CodePermissionDenied, "actor has no dealer scope")
	}
	if requested != nil && *requested != *actor.DealerID {
		return Scope{}, pkgerrors.New(pkgerrors.CodePermissionDenied, "cross-dealer access denied")
	}

	dealerID := *actor.DealerID
	scope := Scope{DealerID: &dealerID}
	if actor.Role == enums.RoleSalesRep {
		self := actor.UserID
		scope.AssignedTo = &self
	}
	return scope, nil
}
