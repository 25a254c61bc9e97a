package middleware

import (
	"context"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the actor resolved by Auth for downstream handlers.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func ActorFromContext(ctx context.Context) (access.Actor, bool) {
	if ctx == nil {
		return access.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(access.Actor)
	return actor, ok
}

// UserIDFromContext is "" for anonymous requests such as public intake.
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

// DealerIDFromContext is "" for super admins and anonymous requests.
func DealerIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.DealerID != nil {
		return actor.DealerID.String()
	}
	return ""
}
