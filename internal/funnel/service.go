package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type leadSource interface {
	ListScoped(ctx context.Context, scope access.Scope, window Window) ([]models.Lead, error)
}

type dealerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

type Params struct {
	Actor    access.Actor
	DealerID *uuid.UUID
	Window   Window
}

// Report is a funnel snapshot. DealerID is nil for a global report and
// AssignedTo is set when the population is one rep's leads.
type Report struct {
	Counts
	DealerID    *uuid.UUID `json:"dealer_id,omitempty"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	Window      Window     `json:"window"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type Service interface {
	Aggregate(ctx context.Context, params Params) (*Report, error)
}

type service struct {
	leads   leadSource
	dealers dealerReader
	guard   *access.Guard
	logg    *logger.Logger
	clock   func() time.Time
}

func NewService(leads leadSource, dealers dealerReader, guard *access.Guard, logg *logger.Logger) (Service, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead source required")
	}
	if dealers == nil {
		return nil, fmt.Errorf("dealer reader required")
	}
	if guard == nil {
		return nil, fmt.Errorf("access guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{leads: leads, dealers: dealers, guard: guard, logg: logg, clock: time.Now}, nil
}

func (s *service) Aggregate(ctx context.Context, params Params) (*Report, error) {
	if params.Actor.UserID == uuid.Nil || !params.Actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated actor required")
	}
	scope, err := s.guard.Visibility(ctx, params.Actor, access.ResourceAnalytics, params.DealerID)
	if err != nil {
		return nil, err
	}
	if scope.DealerID != nil {
		dealer, err := s.dealers.FindByID(ctx, *scope.DealerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if err := visibility.EnsureDealerVisible(dealer); err != nil {
			return nil, err
		}
	}

	rows, err := s.leads.ListScoped(ctx, scope, params.Window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load funnel leads")
	}
	report := &Report{
		Counts:      Aggregate(rows),
		DealerID:    scope.DealerID,
		AssignedTo:  scope.AssignedTo,
		Window:      params.Window,
		GeneratedAt: s.clock().UTC(),
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scope_global": scope.Global(),
		"leads":        report.Total,
	})
	s.logg.Debug(logCtx, "funnel aggregated")
	return report, nil
}
