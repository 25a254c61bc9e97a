package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/api/responses"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	pkgAuth "github.com/angelmondragon/dealercrm-backend/pkg/auth"
	"github.com/angelmondragon/dealercrm-backend/pkg/auth/session"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

// ActorResolver loads the current role and dealer for a token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (access.Actor, error)
}

type authenticator struct {
	cfg      config.JWTConfig
	sessions session.AccessSessionChecker
	resolver ActorResolver
}

// Auth validates the bearer token, confirms its refresh session is still
// live and stores the actor as it is stored now, not as it was minted. A
// demoted or deactivated user loses access on the next request.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	a := authenticator{cfg: cfg, sessions: verifier, resolver: resolver}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.authenticate(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID.String(), actor.Role.String(), DealerIDFromContext(ctx))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a authenticator) authenticate(r *http.Request) (access.Actor, error) {
	token, err := BearerToken(r)
	if err != nil {
		return access.Actor{}, err
	}
	claims, err := pkgAuth.ParseAccessToken(a.cfg, token)
	if err != nil {
		return access.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	if a.sessions != nil {
		live, err := a.sessions.HasSession(r.Context(), claims.ID)
		switch {
		case err != nil:
			return access.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		case !live:
			return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	if a.resolver == nil {
		return access.Actor{UserID: claims.UserID, DealerID: claims.DealerID, Role: claims.Role}, nil
	}
	return a.resolver.ResolveActor(r.Context(), claims.UserID)
}

// BearerToken reads the Authorization header. The "Bearer " scheme prefix
// is optional and case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return raw, nil
}
