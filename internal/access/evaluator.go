// Package access is the single authority on who may do what to which tenant
// resource. Evaluate is pure; Guard adds denial logging and metrics.
package access

import (
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

type Action string

const (
	ActionView           Action = "view"
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionManageRoles    Action = "manage_roles"
	ActionAssignLeads    Action = "assign_leads"
	ActionUploadPhotos   Action = "upload_photos"
	ActionCreateDealers  Action = "create_dealers"
	ActionActivateDealer Action = "activate_dealer"
)

var knownActions = []Action{
	ActionView,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionManageRoles,
	ActionAssignLeads,
	ActionUploadPhotos,
	ActionCreateDealers,
	ActionActivateDealer,
}

// Actions returns every action the evaluator recognises.
func Actions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}

func (a Action) IsValid() bool {
	for _, candidate := range knownActions {
		if candidate == a {
			return true
		}
	}
	return false
}

type ResourceType string

const (
	ResourceUsers     ResourceType = "users"
	ResourceVehicles  ResourceType = "vehicles"
	ResourceLeads     ResourceType = "leads"
	ResourceAnalytics ResourceType = "analytics"
	ResourceDealers   ResourceType = "dealers"
)

var knownResources = []ResourceType{
	ResourceUsers,
	ResourceVehicles,
	ResourceLeads,
	ResourceAnalytics,
	ResourceDealers,
}

// ResourceTypes returns every resource type the evaluator recognises.
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, len(knownResources))
	copy(out, knownResources)
	return out
}

func (r ResourceType) IsValid() bool {
	for _, candidate := range knownResources {
		if candidate == r {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller. DealerID is nil for super admins.
type Actor struct {
	UserID   uuid.UUID
	DealerID *uuid.UUID
	Role     enums.Role
}

// Resource is the target of an action. OwnerID is the assigned user for
// leads and vehicles; TargetRole is the role being granted for manage_roles.
type Resource struct {
	Type       ResourceType
	DealerID   *uuid.UUID
	OwnerID    *uuid.UUID
	TargetRole enums.Role
}

type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func decide(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}

type grant struct {
	actions   []Action
	resources []ResourceType
}

func (g grant) covers(action Action, resource ResourceType) bool {
	return containsAction(g.actions, action) && containsResource(g.resources, resource)
}

var crud = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete}

var (
	dealerAdminGrant  = grant{actions: crud, resources: []ResourceType{ResourceUsers, ResourceVehicles, ResourceLeads}}
	salesManagerGrant = grant{actions: crud, resources: []ResourceType{ResourceVehicles, ResourceLeads, ResourceAnalytics}}
	salesRepLeads     = grant{actions: []Action{ActionView, ActionUpdate}, resources: []ResourceType{ResourceLeads}}
	salesRepVehicles  = grant{actions: []Action{ActionView, ActionUploadPhotos}, resources: []ResourceType{ResourceVehicles}}
)

// Evaluate decides whether actor may perform action on resource. Any
// combination without an explicit rule is denied.
func Evaluate(actor Actor, action Action, resource Resource) Decision {
	if !action.IsValid() || !resource.Type.IsValid() {
		return Deny
	}

	switch actor.Role {
	case enums.RoleSuperAdmin:
		return Allow
	case enums.RoleDealerAdmin:
		if !sameDealer(actor, resource) {
			return Deny
		}
		if action == ActionManageRoles {
			return decide(resource.Type == ResourceUsers &&
				resource.TargetRole.IsValid() &&
				resource.TargetRole != enums.RoleSuperAdmin)
		}
		return decide(dealerAdminGrant.covers(action, resource.Type))
	case enums.RoleSalesManager:
		if !sameDealer(actor, resource) {
			return Deny
		}
		if action == ActionAssignLeads {
			return decide(resource.Type == ResourceLeads)
		}
		return decide(salesManagerGrant.covers(action, resource.Type))
	case enums.RoleSalesRep:
		if !sameDealer(actor, resource) || !ownedBy(actor, resource) {
			return Deny
		}
		return decide(salesRepLeads.covers(action, resource.Type) || salesRepVehicles.covers(action, resource.Type))
	default:
		return Deny
	}
}

// CanManageRole reports whether actor may grant, revoke or administer
// accounts holding target.
func CanManageRole(actor Actor, target enums.Role) bool {
	switch actor.Role {
	case enums.RoleSuperAdmin:
		return true
	case enums.RoleDealerAdmin:
		return target == enums.RoleSalesManager || target == enums.RoleSalesRep
	default:
		return false
	}
}

func sameDealer(actor Actor, resource Resource) bool {
	return actor.DealerID != nil && resource.DealerID != nil && *actor.DealerID == *resource.DealerID
}

func ownedBy(actor Actor, resource Resource) bool {
	return resource.OwnerID != nil && actor.UserID != uuid.Nil && *resource.OwnerID == actor.UserID
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func containsResource(resources []ResourceType, resource ResourceType) bool {
	for _, r := range resources {
		if r == resource {
			return true
		}
	}
	return false
}
