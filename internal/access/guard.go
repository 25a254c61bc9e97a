package access

import (
	"context"

	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/google/uuid"
)

type denialRecorder interface {
	IncDenial(action, resource string)
}

// Guard turns evaluator denials into PermissionDenied errors and records
// each one.
type Guard struct {
	logg    *logger.Logger
	metrics denialRecorder
}

func NewGuard(logg *logger.Logger, metrics denialRecorder) *Guard {
	return &Guard{logg: logg, metrics: metrics}
}

// Authorize returns nil when Evaluate allows the action.
func (g *Guard) Authorize(ctx context.Context, actor Actor, action Action, resource Resource) error {
	if Evaluate(actor, action, resource).Allowed() {
		return nil
	}
	g.recordDenial(ctx, actor, action, resource)
	return pkgerrors.New(pkgerrors.CodePermissionDenied, "permission denied").WithDetails(map[string]any{
		"action":   action,
		"resource": resource.Type,
	})
}

// Deny records a denial decided outside Evaluate, such as a hierarchy or
// self-management rule, and returns it as PermissionDenied.
func (g *Guard) Deny(ctx context.Context, actor Actor, action Action, resource Resource, message string) error {
	g.recordDenial(ctx, actor, action, resource)
	details := map[string]any{
		"action":   action,
		"resource": resource.Type,
	}
	if resource.TargetRole != "" {
		details["role"] = resource.TargetRole
	}
	return pkgerrors.New(pkgerrors.CodePermissionDenied, message).WithDetails(details)
}

// Visibility wraps LeadVisibility with the same denial bookkeeping.
func (g *Guard) Visibility(ctx context.Context, actor Actor, resource ResourceType, requested *uuid.UUID) (Scope, error) {
	scope, err := LeadVisibility(actor, requested)
	if err != nil {
		g.recordDenial(ctx, actor, ActionView, Resource{Type: resource, DealerID: requested})
		return Scope{}, err
	}
	return scope, nil
}

func (g *Guard) recordDenial(ctx context.Context, actor Actor, action Action, resource Resource) {
	if g == nil {
		return
	}
	if g.metrics != nil {
		g.metrics.IncDenial(string(action), string(resource.Type))
	}
	if g.logg == nil {
		return
	}
	fields := map[string]any{
		"event":      "access.denied",
		"actor_id":   actor.UserID.String(),
		"actor_role": actor.Role.String(),
		"action":     string(action),
		"resource":   string(resource.Type),
	}
	if resource.DealerID != nil {
		fields["resource_dealer_id"] = resource.DealerID.String()
	}
	if resource.OwnerID != nil {
		fields["resource_owner_id"] = resource.OwnerID.String()
	}
	if resource.TargetRole != "" {
		fields["target_role"] = resource.TargetRole.String()
	}
	g.logg.Warn(g.logg.WithFields(ctx, fields), "access denied")
}
