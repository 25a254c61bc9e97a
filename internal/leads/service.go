package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/contact"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
	"github.com/angelmondragon/dealercrm-backend/pkg/pagination"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	channelPublic = "public"
	channelStaff  = "staff"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type dealerReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Dealer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

// SessionConverter closes the incomplete intake session a lead was created
// from. It must be a no-op when no session matches.
type SessionConverter interface {
	MarkConverted(ctx context.Context, tx *gorm.DB, dealerID uuid.UUID, sessionKey string, leadID uuid.UUID, at time.Time) error
}

type leadMetrics interface {
	IncCreated(channel string)
	IncTransition(from, to string)
	IncConflict()
}

// Service owns every write path for leads so access checks and audit rows
// cannot be bypassed.
type Service interface {
	CreatePublic(ctx context.Context, dealerSlug string, input CreateLeadInput) (*LeadDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateLeadInput) (*LeadDTO, error)
	Get(ctx context.Context, actor access.Actor, leadID uuid.UUID) (*LeadDTO, error)
	List(ctx context.Context, params ListParams) (*LeadList, error)
	History(ctx context.Context, actor access.Actor, leadID uuid.UUID) ([]HistoryEntryDTO, error)
	Transition(ctx context.Context, input TransitionInput) (*LeadDTO, error)
	Assign(ctx context.Context, input AssignInput) (*LeadDTO, error)
	Archive(ctx context.Context, actor access.Actor, leadID uuid.UUID) error
}

type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxEmitter
	Dealers    dealerReader
	Sessions   SessionConverter
	Guard      *access.Guard
	Metrics    leadMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxEmitter
	dealers  dealerReader
	sessions SessionConverter
	guard    *access.Guard
	metrics  leadMetrics
	logg     *logger.Logger
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("leads repository required")
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
		sessions: params.Sessions,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC().Truncate(versionPrecision)
}

func (s *service) CreatePublic(ctx context.Context, dealerSlug string, input CreateLeadInput) (*LeadDTO, error) {
	slug := visibility.NormalizeSlug(dealerSlug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer slug required")
	}
	dealer, err := s.dealers.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if err := visibility.EnsureDealerVisible(dealer); err != nil {
		return nil, err
	}
	return s.create(ctx, dealer, input, nil, channelPublic)
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateLeadInput) (*LeadDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	dealerID := input.DealerID
	if dealerID == nil {
		if actor.DealerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id required")
		}
		dealerID = actor.DealerID
	}
	resource := access.Resource{Type: access.ResourceLeads, DealerID: dealerID}
	if err := s.guard.Authorize(ctx, actor, access.ActionCreate, resource); err != nil {
		return nil, err
	}
	dealer, err := s.dealers.FindByID(ctx, *dealerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if err := visibility.EnsureDealerVisible(dealer); err != nil {
		return nil, err
	}
	return s.create(ctx, dealer, input, &actor, channelStaff)
}

func (s *service) create(ctx context.Context, dealer *models.Dealer, input CreateLeadInput, actor *access.Actor, channel string) (*LeadDTO, error) {
	person := input.Contact.normalized()
	if person.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one of name, phone or email is required")
	}

	now := s.now()
	attribution := input.Attribution
	lead := &models.Lead{
		ID:              uuid.New(),
		DealerID:        dealer.ID,
		VehicleID:       input.VehicleID,
		Name:            optional(person.Name),
		Phone:           optional(person.Phone),
		Email:           optional(person.Email),
		Message:         input.Message,
		Source:          attribution.Source,
		Agent:           attribution.Agent,
		UTMSource:       attribution.UTMSource,
		UTMMedium:       attribution.UTMMedium,
		UTMCampaign:     attribution.UTMCampaign,
		GCLID:           attribution.GCLID,
		Consent:         input.Consent,
		Status:          enums.LeadStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusUpdatedAt: now,
	}

	var changedBy *uuid.UUID
	if actor != nil {
		id := actor.UserID
		changedBy = &id
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, lead); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lead")
		}
		entry := &models.LeadStatusHistory{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			ToStatus:  enums.LeadStatusNew,
			ChangedBy: changedBy,
			CreatedAt: now,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append creation history")
		}
		if s.sessions != nil {
			for _, key := range sessionKeys(input.SessionKey, person) {
				if err := s.sessions.MarkConverted(ctx, tx, dealer.ID, key, lead.ID, now); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert incomplete session")
				}
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadCreated,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: outbox.LeadCreatedEvent{
				LeadID:     lead.ID,
				DealerID:   lead.DealerID,
				Source:     lead.Source,
				Agent:      lead.Agent,
				Consent:    lead.Consent,
				SessionKey: input.SessionKey,
				CreatedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncCreated(channel)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lead_id":   lead.ID.String(),
		"dealer_id": lead.DealerID.String(),
		"channel":   channel,
		"source":    lead.Source,
	})
	s.logg.Info(logCtx, "lead created")
	return FromModel(lead), nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, leadID uuid.UUID) (*LeadDTO, error) {
	lead, err := s.loadAuthorized(ctx, s.repo, actor, leadID, access.ActionView)
	if err != nil {
		return nil, err
	}
	return FromModel(lead), nil
}

func (s *service) History(ctx context.Context, actor access.Actor, leadID uuid.UUID) ([]HistoryEntryDTO, error) {
	lead, err := s.loadAuthorized(ctx, s.repo, actor, leadID, access.ActionView)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, lead.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead history")
	}
	out := make([]HistoryEntryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyFromModel(row))
	}
	return out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*LeadList, error) {
	if err := requireActor(params.Actor); err != nil {
		return nil, err
	}
	scope, err := s.guard.Visibility(ctx, params.Actor, access.ResourceLeads, params.DealerID)
	if err != nil {
		return nil, err
	}

	query := listQuery{
		Scope:      scope,
		AssignedTo: params.AssignedTo,
		Source:     params.Source,
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != "" {
		status, err := enums.ParseLeadStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}
	out := &LeadList{Leads: make([]LeadDTO, 0, len(rows))}
	for i := range rows {
		out.Leads = append(out.Leads, *FromModel(&rows[i]))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*LeadDTO, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.LeadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}
	target, err := enums.ParseLeadStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	expected, err := ParseVersion(input.ExpectedVersion)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_version")
	}

	var (
		result  *LeadDTO
		from    enums.LeadStatus
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lead, err := s.loadAuthorized(ctx, repo, input.Actor, input.LeadID, access.ActionUpdate)
		if err != nil {
			return err
		}
		if !sameVersion(lead.StatusUpdatedAt, expected) {
			return s.conflict(lead)
		}
		if lead.Status == target {
			result = FromModel(lead)
			return nil
		}

		now := s.now()
		if !now.After(lead.StatusUpdatedAt) {
			now = lead.StatusUpdatedAt.UTC().Truncate(versionPrecision).Add(versionPrecision)
		}
		rows, err := repo.UpdateStatus(ctx, lead.ID, lead.StatusUpdatedAt, target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead status")
		}
		if rows == 0 {
			return s.conflict(lead)
		}

		from = lead.Status
		actorID := input.Actor.UserID
		entry := &models.LeadStatusHistory{
			ID:         uuid.New(),
			LeadID:     lead.ID,
			FromStatus: &from,
			ToStatus:   target,
			ChangedBy:  &actorID,
			Notes:      input.Notes,
			CreatedAt:  now,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		lead.Status = target
		lead.StatusUpdatedAt = now
		lead.UpdatedAt = now
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadStatusChanged,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         actorRef(&input.Actor),
			OccurredAt:    now,
			Data: outbox.LeadStatusChangedEvent{
				LeadID:     lead.ID,
				DealerID:   lead.DealerID,
				FromStatus: from.String(),
				ToStatus:   target.String(),
				AssignedTo: lead.AssignedTo,
				ChangedAt:  now,
			},
		}); err != nil {
			return err
		}
		changed = true
		result = FromModel(lead)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if s.metrics != nil {
			s.metrics.IncTransition(from.String(), target.String())
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"lead_id":     input.LeadID.String(),
			"from_status": from.String(),
			"to_status":   target.String(),
		})
		s.logg.Info(logCtx, "lead status changed")
	}
	return result, nil
}

func (s *service) conflict(lead *models.Lead) error {
	if s.metrics != nil {
		s.metrics.IncConflict()
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "lead was modified; re-fetch and retry").WithDetails(map[string]any{
		"current_version": FormatVersion(lead.StatusUpdatedAt),
	})
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*LeadDTO, error) {
	if err := requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.LeadID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id required")
	}
	if input.TargetUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id required")
	}

	var result *LeadDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lead, err := s.loadAuthorized(ctx, repo, input.Actor, input.LeadID, access.ActionAssignLeads)
		if err != nil {
			return err
		}
		target, err := repo.FindUser(ctx, input.TargetUserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignee")
		}
		if !assignable(target, lead.DealerID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be an active user of the lead's dealer").
				WithDetails(map[string]any{"user_id": input.TargetUserID})
		}
		// re-assigning the current assignee writes no audit row and no event
		if lead.AssignedTo != nil && *lead.AssignedTo == target.ID {
			result = FromModel(lead)
			return nil
		}

		now := s.now()
		if err := repo.UpdateAssignee(ctx, lead.ID, target.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignee")
		}
		entry := &models.LeadAssignment{
			ID:         uuid.New(),
			LeadID:     lead.ID,
			FromUserID: lead.AssignedTo,
			ToUserID:   target.ID,
			AssignedBy: input.Actor.UserID,
			CreatedAt:  now,
		}
		if err := repo.AppendAssignment(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append assignment")
		}
		previous := lead.AssignedTo
		assignee := target.ID
		lead.AssignedTo = &assignee
		lead.UpdatedAt = now
		result = FromModel(lead)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadAssigned,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         actorRef(&input.Actor),
			OccurredAt:    now,
			Data: outbox.LeadAssignedEvent{
				LeadID:     lead.ID,
				DealerID:   lead.DealerID,
				FromUserID: previous,
				ToUserID:   assignee,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func assignable(user *models.User, dealerID uuid.UUID) bool {
	return user != nil &&
		user.IsActive &&
		user.Role != enums.RoleSuperAdmin &&
		user.DealerID != nil &&
		*user.DealerID == dealerID
}

func (s *service) Archive(ctx context.Context, actor access.Actor, leadID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lead, err := s.loadAuthorized(ctx, repo, actor, leadID, access.ActionDelete)
		if err != nil {
			return err
		}
		now := s.now()
		rows, err := repo.Archive(ctx, lead.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive lead")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadArchived,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         actorRef(&actor),
			OccurredAt:    now,
			Data: outbox.LeadArchivedEvent{
				LeadID:     lead.ID,
				DealerID:   lead.DealerID,
				ArchivedAt: now,
			},
		})
	})
}

// loadAuthorized fetches a live lead and checks action against it with the
// assignee as owner. Archived leads and leads of a deactivated dealer are
// reported as missing.
func (s *service) loadAuthorized(ctx context.Context, repo Repository, actor access.Actor, leadID uuid.UUID, action access.Action) (*models.Lead, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	lead, err := repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	if lead.ArchivedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	dealer, err := repo.FindDealer(ctx, lead.DealerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if err := visibility.EnsureDealerVisible(dealer); err != nil {
		return nil, err
	}
	resource := access.Resource{
		Type:     access.ResourceLeads,
		DealerID: &lead.DealerID,
		OwnerID:  lead.AssignedTo,
	}
	if err := s.guard.Authorize(ctx, actor, action, resource); err != nil {
		return nil, err
	}
	return lead, nil
}

// sessionKeys names the incomplete sessions a new lead closes: the explicit
// key when the form sent one, otherwise every key its contact fields derive.
func sessionKeys(explicit string, person Contact) []string {
	if explicit != "" {
		return []string{explicit}
	}
	return contact.SessionKeys(person.Name, person.Phone, person.Email)
}

func requireActor(actor access.Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	return nil
}

func actorRef(actor *access.Actor) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID:   actor.UserID,
		DealerID: actor.DealerID,
		Role:     actor.Role.String(),
	}
}
