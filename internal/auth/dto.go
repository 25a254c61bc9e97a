package auth

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/users"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// RefreshRequest carries the refresh token issued alongside the access
// token sent in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is a freshly minted access token with its refresh token.
// ExpiresAt is when the access token stops being accepted.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
