package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when it mints a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	DealerID *uuid.UUID
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims is the signed session token. Role and dealer are hints
// for clients; the middleware re-reads the user row on every request.
type AccessTokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	DealerID *uuid.UUID `json:"dealer_id,omitempty"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks (jwt.ClaimsValidator). A
// token whose subject and user_id disagree, or that lacks a jti, cannot be
// tied to a refresh session and is rejected.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("user_id claim missing")
	case c.Subject != c.UserID.String():
		return errors.New("sub does not match user_id")
	case c.ID == "":
		return errors.New("jti claim missing")
	case !c.Role.IsValid():
		return errors.New("role claim invalid")
	}
	return nil
}
