package dealers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealerDTO struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromModel(d *models.Dealer) *DealerDTO {
	if d == nil {
		return nil
	}
	return &DealerDTO{
		ID:        d.ID,
		Slug:      d.Slug,
		Name:      d.Name,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages tenants on behalf of platform operators.
type Service interface {
	Create(ctx context.Context, actor access.Actor, slug, name string) (*DealerDTO, error)
	SetActive(ctx context.Context, actor access.Actor, dealerID uuid.UUID, active bool) (*DealerDTO, error)
	List(ctx context.Context, actor access.Actor) ([]DealerDTO, error)
}

type service struct {
	repo   *Repository
	tx     db.TxRunner
	outbox outboxEmitter
	guard  *access.Guard
	logg   *logger.Logger
	clock  func() time.Time
}

func NewService(repo *Repository, tx db.TxRunner, emitter outboxEmitter, guard *access.Guard, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, guard: guard, logg: logg, clock: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, slug, name string) (*DealerDTO, error) {
	if err := s.guard.Authorize(ctx, actor, access.ActionCreateDealers, access.Resource{Type: access.ResourceDealers}); err != nil {
		return nil, err
	}
	slug = visibility.NormalizeSlug(slug)
	if !visibility.ValidSlug(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug must be 2-64 lowercase letters, digits or hyphens")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}

	now := s.clock().UTC()
	dealer := &models.Dealer{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, dealer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "dealer slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dealer")
	}

	s.logg.Info(s.logg.WithDealerID(ctx, dealer.ID.String()), "dealer created")
	return FromModel(dealer), nil
}

func (s *service) SetActive(ctx context.Context, actor access.Actor, dealerID uuid.UUID, active bool) (*DealerDTO, error) {
	resource := access.Resource{Type: access.ResourceDealers, DealerID: &dealerID}
	if err := s.guard.Authorize(ctx, actor, access.ActionActivateDealer, resource); err != nil {
		return nil, err
	}

	var result *DealerDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dealer, err := repo.FindByID(ctx, dealerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if dealer.IsActive == active {
			result = FromModel(dealer)
			return nil
		}

		now := s.clock().UTC()
		if err := repo.SetActive(ctx, dealer.ID, active, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dealer")
		}
		dealer.IsActive = active
		dealer.UpdatedAt = now
		result = FromModel(dealer)

		eventType := enums.EventDealerDeactivated
		if active {
			eventType = enums.EventDealerActivated
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateDealer,
			AggregateID:   dealer.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			OccurredAt:    now,
			Data: outbox.DealerActiveChangedEvent{
				DealerID: dealer.ID,
				Slug:     dealer.Slug,
				Active:   active,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"dealer_id": dealerID.String(), "active": active})
	s.logg.Info(logCtx, "dealer activation changed")
	return result, nil
}

func (s *service) List(ctx context.Context, actor access.Actor) ([]DealerDTO, error) {
	if actor.Role != enums.RoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "permission denied")
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dealers")
	}
	out := make([]DealerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}
