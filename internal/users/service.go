package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
	"github.com/angelmondragon/dealercrm-backend/pkg/security"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const tempPasswordLength = 16

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type dealerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

// Service manages agent accounts and resolves the acting user per request.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateUserInput) (*CreatedUser, error)
	ChangeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role string) (*UserDTO, error)
	SetActive(ctx context.Context, actor access.Actor, userID uuid.UUID, active bool) (*UserDTO, error)
	List(ctx context.Context, params ListParams) ([]UserDTO, error)
	ResolveActor(ctx context.Context, userID uuid.UUID) (access.Actor, error)
}

type ServiceParams struct {
	Repository *Repository
	TxRunner   txRunner
	Outbox     outboxEmitter
	Dealers    dealerReader
	Guard      *access.Guard
	Password   config.PasswordConfig
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo     *Repository
	tx       txRunner
	outbox   outboxEmitter
	dealers  dealerReader
	guard    *access.Guard
	password config.PasswordConfig
	logg     *logger.Logger
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealer reader required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("access guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repository,
		tx:       params.TxRunner,
		outbox:   params.Outbox,
		dealers:  params.Dealers,
		guard:    params.Guard,
		password: params.Password,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateUserInput) (*CreatedUser, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	invalid := pkgerrors.Fields{}
	role, err := enums.ParseRole(strings.TrimSpace(input.Role))
	if err != nil {
		invalid.Add("role", "must be a known role")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		invalid.Add("email", "must be a valid email")
	}
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		invalid.Add("first_name", "is required")
	}
	lastName := strings.TrimSpace(input.LastName)
	if lastName == "" {
		invalid.Add("last_name", "is required")
	}
	if err := invalid.Err(); err != nil {
		return nil, err
	}

	dealerID := input.DealerID
	if role == enums.RoleSuperAdmin {
		if dealerID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "super_admin accounts cannot belong to a dealer")
		}
	} else if dealerID == nil {
		if actor.DealerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id required")
		}
		dealerID = actor.DealerID
	}

	resource := access.Resource{Type: access.ResourceUsers, DealerID: dealerID}
	if err := s.guard.Authorize(ctx, actor, access.ActionCreate, resource); err != nil {
		return nil, err
	}
	if !access.CanManageRole(actor, role) {
		return nil, s.denyRole(ctx, actor, access.ActionCreate, dealerID, role)
	}
	if dealerID != nil {
		if err := s.ensureDealer(ctx, *dealerID); err != nil {
			return nil, err
		}
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
	}
	hash, err := security.HashPassword(tempPassword, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.clock().UTC()
	user := &models.User{
		ID:           uuid.New(),
		DealerID:     dealerID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":    user.ID.String(),
		"role":       role.String(),
		"created_by": actor.UserID.String(),
	})
	s.logg.Info(logCtx, "user created")
	return &CreatedUser{User: FromModel(user), TempPassword: tempPassword}, nil
}

// ChangeRole requires the actor to manage both the current and the new role.
// Super admin accounts are not dealer-bound, so no role change may enter or
// leave super_admin.
func (s *service) ChangeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, rawRole string) (*UserDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	role, err := enums.ParseRole(strings.TrimSpace(rawRole))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if userID == actor.UserID {
		resource := access.Resource{Type: access.ResourceUsers, DealerID: actor.DealerID, TargetRole: role}
		return nil, s.guard.Deny(ctx, actor, access.ActionManageRoles, resource, "cannot change your own role")
	}

	var result *UserDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.load(ctx, repo, userID)
		if err != nil {
			return err
		}
		resource := access.Resource{Type: access.ResourceUsers, DealerID: user.DealerID, TargetRole: role}
		if err := s.guard.Authorize(ctx, actor, access.ActionManageRoles, resource); err != nil {
			return err
		}
		if !access.CanManageRole(actor, user.Role) {
			return s.denyRole(ctx, actor, access.ActionManageRoles, user.DealerID, user.Role)
		}
		if !access.CanManageRole(actor, role) {
			return s.denyRole(ctx, actor, access.ActionManageRoles, user.DealerID, role)
		}
		if (user.Role == enums.RoleSuperAdmin) != (role == enums.RoleSuperAdmin) {
			return pkgerrors.New(pkgerrors.CodeValidation, "super_admin cannot be granted or revoked by role change")
		}
		if user.Role == role {
			result = FromModel(user)
			return nil
		}

		now := s.clock().UTC()
		if err := repo.UpdateRole(ctx, user.ID, role, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
		}
		from := user.Role
		user.Role = role
		user.UpdatedAt = now
		result = FromModel(user)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRoleChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, DealerID: actor.DealerID, Role: actor.Role.String()},
			OccurredAt:    now,
			Data: outbox.UserRoleChangedEvent{
				UserID:   user.ID,
				DealerID: user.DealerID,
				FromRole: from.String(),
				ToRole:   role.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) SetActive(ctx context.Context, actor access.Actor, userID uuid.UUID, active bool) (*UserDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if userID == actor.UserID && !active {
		resource := access.Resource{Type: access.ResourceUsers, DealerID: actor.DealerID, TargetRole: actor.Role}
		return nil, s.guard.Deny(ctx, actor, access.ActionUpdate, resource, "cannot deactivate yourself")
	}

	var (
		result  *UserDTO
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := s.load(ctx, repo, userID)
		if err != nil {
			return err
		}
		resource := access.Resource{Type: access.ResourceUsers, DealerID: user.DealerID}
		if err := s.guard.Authorize(ctx, actor, access.ActionUpdate, resource); err != nil {
			return err
		}
		if !access.CanManageRole(actor, user.Role) {
			return s.denyRole(ctx, actor, access.ActionUpdate, user.DealerID, user.Role)
		}
		if user.IsActive == active {
			result = FromModel(user)
			return nil
		}

		now := s.clock().UTC()
		if err := repo.SetActive(ctx, user.ID, active, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user active flag")
		}
		user.IsActive = active
		user.UpdatedAt = now
		result = FromModel(user)
		changed = true

		eventType := enums.EventUserDeactivated
		if active {
			eventType = enums.EventUserActivated
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, DealerID: actor.DealerID, Role: actor.Role.String()},
			OccurredAt:    now,
			Data: outbox.UserActiveChangedEvent{
				UserID:   user.ID,
				DealerID: user.DealerID,
				Active:   active,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"active":  active,
		})
		s.logg.Info(logCtx, "user active flag changed")
	}
	return result, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]UserDTO, error) {
	if err := requireActor(params.Actor); err != nil {
		return nil, err
	}
	dealerID := params.DealerID
	if dealerID == nil && params.Actor.Role != enums.RoleSuperAdmin {
		dealerID = params.Actor.DealerID
	}
	resource := access.Resource{Type: access.ResourceUsers, DealerID: dealerID}
	if err := s.guard.Authorize(ctx, params.Actor, access.ActionView, resource); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// ResolveActor rebuilds the caller from storage so role changes and
// deactivations take effect on the next request rather than at token expiry.
func (s *service) ResolveActor(ctx context.Context, userID uuid.UUID) (access.Actor, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return access.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive || !user.Role.IsValid() {
		return access.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user inactive")
	}
	if user.Role != enums.RoleSuperAdmin {
		if user.DealerID == nil {
			return access.Actor{}, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		if err := s.ensureDealer(ctx, *user.DealerID); err != nil {
			return access.Actor{}, err
		}
	}
	return access.Actor{UserID: user.ID, DealerID: user.DealerID, Role: user.Role}, nil
}

func (s *service) load(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.User, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) ensureDealer(ctx context.Context, dealerID uuid.UUID) error {
	dealer, err := s.dealers.FindByID(ctx, dealerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	return visibility.EnsureDealerVisible(dealer)
}

func requireActor(actor access.Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return nil
}

func (s *service) denyRole(ctx context.Context, actor access.Actor, action access.Action, dealerID *uuid.UUID, role enums.Role) error {
	resource := access.Resource{Type: access.ResourceUsers, DealerID: dealerID, TargetRole: role}
	return s.guard.Deny(ctx, actor, action, resource, "role outside your management scope")
}
