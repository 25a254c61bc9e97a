package incomplete

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/contact"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultWorklistLimit = 100
	maxWorklistLimit     = 500
	// a concurrent first insert for the same key loses the unique index race
	// once; the retry then merges into the winner's row
	trackAttempts = 2
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dealerReader interface {
	FindBySlug(ctx context.Context, slug string) (*models.Dealer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

type Service interface {
	Track(ctx context.Context, dealerSlug string, input TrackInput) (*SessionDTO, error)
	Worklist(ctx context.Context, params WorklistParams) (*Worklist, error)
	ExportWorklist(ctx context.Context, params WorklistParams) (string, []byte, error)
}

type ServiceParams struct {
	Repository *Repository
	TxRunner   txRunner
	Dealers    dealerReader
	Guard      *access.Guard
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo    *Repository
	tx      txRunner
	dealers dealerReader
	guard   *access.Guard
	logg    *logger.Logger
	clock   func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("incomplete session repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
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
		repo:    params.Repository,
		tx:      params.TxRunner,
		dealers: params.Dealers,
		guard:   params.Guard,
		logg:    params.Logger,
		clock:   clock,
	}, nil
}

func (s *service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// Track upserts the session identified by the input's key. Repeating an
// interaction leaves the session as it was apart from last activity. A
// converted session stays frozen under an explicit key; under a key derived
// from contact fields it is retired and a fresh session starts.
func (s *service) Track(ctx context.Context, dealerSlug string, input TrackInput) (*SessionDTO, error) {
	slug := visibility.NormalizeSlug(dealerSlug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer slug required")
	}
	update, err := normalizeTrack(input)
	if err != nil {
		return nil, err
	}

	dealer, err := s.dealers.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if err := visibility.EnsureDealerVisible(dealer); err != nil {
		return nil, err
	}

	var (
		result  *models.IncompleteLeadSession
		created bool
	)
	for attempt := 1; ; attempt++ {
		result, created, err = s.upsert(ctx, dealer.ID, update)
		if err == nil {
			break
		}
		if attempt < trackAttempts && db.IsUniqueViolation(err, "") {
			continue
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track incomplete session")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"dealer_id":  dealer.ID.String(),
		"session_id": result.ID.String(),
		"form_step":  result.FormStep.String(),
		"created":    created,
	})
	s.logg.Debug(logCtx, "incomplete session tracked")

	dto := sessionFromModel(result)
	return &dto, nil
}

func (s *service) upsert(ctx context.Context, dealerID uuid.UUID, update trackUpdate) (*models.IncompleteLeadSession, bool, error) {
	var (
		result  *models.IncompleteLeadSession
		created bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		existing, err := repo.FindByKey(ctx, dealerID, update.key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil && existing.ConvertedAt != nil && update.derived {
			if err := repo.Retire(ctx, existing, now); err != nil {
				return err
			}
			existing = nil
		}
		if existing == nil {
			session := &models.IncompleteLeadSession{
				ID:         uuid.New(),
				DealerID:   dealerID,
				SessionKey: update.key,
				FormStep:   enums.FormStepStarted,
				CreatedAt:  now,
			}
			merge(session, update, now)
			if err := repo.Create(ctx, session); err != nil {
				return err
			}
			result, created = session, true
			return nil
		}
		if existing.ConvertedAt != nil {
			result = existing
			return nil
		}
		merge(existing, update, now)
		if err := repo.Save(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	return result, created, err
}

type trackUpdate struct {
	key     string
	derived bool
	name    string
	phone   string
	email   string
	fields  []string
	step    enums.FormStep
	source  string
}

func normalizeTrack(input TrackInput) (trackUpdate, error) {
	update := trackUpdate{
		name:   strings.TrimSpace(input.Name),
		phone:  strings.TrimSpace(input.Phone),
		email:  strings.TrimSpace(input.Email),
		source: strings.TrimSpace(input.Source),
		step:   enums.FormStepStarted,
	}
	if raw := strings.TrimSpace(input.FormStep); raw != "" {
		step, err := enums.ParseFormStep(raw)
		if err != nil {
			return trackUpdate{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form_step")
		}
		update.step = step
	}
	for _, field := range input.FieldsCompleted {
		if field = strings.TrimSpace(field); field != "" {
			update.fields = append(update.fields, field)
		}
	}
	if update.name != "" {
		update.fields = append(update.fields, "name")
	}
	if update.phone != "" {
		update.fields = append(update.fields, "phone")
	}
	if update.email != "" {
		update.fields = append(update.fields, "email")
	}

	update.key = strings.TrimSpace(input.SessionKey)
	if update.key == "" {
		update.key = contact.SessionKey(update.name, update.phone, update.email)
		update.derived = true
	}
	if update.key == "" {
		return trackUpdate{}, pkgerrors.New(pkgerrors.CodeValidation, "session_key or a contact field is required")
	}
	return update, nil
}

// merge folds update into session: fields only grow, the step only moves
// forward, and empty values never clear what was captured earlier.
func merge(session *models.IncompleteLeadSession, update trackUpdate, now time.Time) {
	session.FieldsCompleted = union(session.FieldsCompleted, update.fields)
	session.FormStep = enums.Furthest(session.FormStep, update.step)
	if update.name != "" {
		session.Name = &update.name
	}
	if update.phone != "" {
		session.Phone = &update.phone
	}
	if update.email != "" {
		session.Email = &update.email
	}
	if session.Source == "" {
		session.Source = update.source
	}
	session.LastActivity = now
	session.UpdatedAt = now
}

func union(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, field := range list {
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}

func (s *service) Worklist(ctx context.Context, params WorklistParams) (*Worklist, error) {
	if params.Actor.UserID == uuid.Nil || !params.Actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated actor required")
	}
	filter, err := parseFilter(params)
	if err != nil {
		return nil, err
	}

	dealerID := params.DealerID
	if dealerID == nil && params.Actor.Role != enums.RoleSuperAdmin {
		dealerID = params.Actor.DealerID
	}
	resource := access.Resource{Type: access.ResourceLeads, DealerID: dealerID}
	if err := s.guard.Authorize(ctx, params.Actor, access.ActionView, resource); err != nil {
		return nil, err
	}
	if dealerID != nil {
		dealer, err := s.dealers.FindByID(ctx, *dealerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if err := visibility.EnsureDealerVisible(dealer); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.ListOpen(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list incomplete sessions")
	}
	total, err := s.repo.CountOpen(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count incomplete sessions")
	}
	now := s.now()
	list := buildWorklist(rows, filter, now, worklistLimit(params.Limit))
	// contact sessions are scanned first, so anything past the cap is low
	if unscanned := int(total) - len(rows); unscanned > 0 {
		list.Counts[enums.PriorityLow] += unscanned
	}
	return list, nil
}

func parseFilter(params WorklistParams) (Filter, error) {
	filter := Filter{HasContact: params.HasContact}
	if raw := strings.TrimSpace(params.Priority); raw != "" {
		priority, err := enums.ParsePriority(raw)
		if err != nil {
			return Filter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority filter")
		}
		filter.Priority = &priority
	}
	return filter, nil
}

func worklistLimit(limit int) int {
	if limit <= 0 {
		return defaultWorklistLimit
	}
	if limit > maxWorklistLimit {
		return maxWorklistLimit
	}
	return limit
}

// buildWorklist scores every session, counts tiers before filtering, and
// returns the filtered items ordered by tier then most recent activity.
func buildWorklist(rows []models.IncompleteLeadSession, filter Filter, now time.Time, limit int) *Worklist {
	counts := map[enums.Priority]int{
		enums.PriorityHigh:   0,
		enums.PriorityMedium: 0,
		enums.PriorityLow:    0,
	}
	items := make([]WorklistItem, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		priority := Priority(*row, now)
		counts[priority]++
		items = append(items, WorklistItem{
			SessionDTO:   sessionFromModel(row),
			Priority:     priority,
			HasContact:   row.HasContact(),
			RecencyLabel: RecencyLabel(row.LastActivity, now),
		})
	}

	items = filter.Apply(items)
	sort.SliceStable(items, func(i, j int) bool {
		wi, wj := items[i].Priority.Weight(), items[j].Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		if !items[i].LastActivity.Equal(items[j].LastActivity) {
			return items[i].LastActivity.After(items[j].LastActivity)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return &Worklist{Items: items, Counts: counts, GeneratedAt: now}
}
