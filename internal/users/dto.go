package users

import (
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	DealerID    *uuid.UUID `json:"dealer_id,omitempty"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserInput describes a new agent. DealerID defaults to the actor's
// dealer and must be empty for super admins.
type CreateUserInput struct {
	DealerID  *uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// CreatedUser carries the one-time temporary password alongside the user.
type CreatedUser struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password"`
}

type ListParams struct {
	Actor    access.Actor
	DealerID *uuid.UUID
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		DealerID:    u.DealerID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
