package leads

import (
	"context"
	"time"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/angelmondragon/dealercrm-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for leads and their audit trails.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, prevVersion time.Time, status enums.LeadStatus, at time.Time) (int64, error)
	UpdateAssignee(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	AppendHistory(ctx context.Context, entry *models.LeadStatusHistory) error
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error)
	AppendAssignment(ctx context.Context, entry *models.LeadAssignment) error
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindDealer(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
	List(ctx context.Context, query listQuery) ([]models.Lead, *pagination.Cursor, error)
}

type listQuery struct {
	Scope      access.Scope
	Status     enums.LeadStatus
	AssignedTo *uuid.UUID
	Source     string
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the leads repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// UpdateStatus applies the change only while status_updated_at still equals
// prevVersion and returns the affected row count; zero means another writer won.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, prevVersion time.Time, status enums.LeadStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND status_updated_at = ? AND archived_at IS NULL", id, prevVersion).
		Updates(map[string]any{
			"status":            status,
			"status_updated_at": at,
			"updated_at":        at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateAssignee(ctx context.Context, id uuid.UUID, assignee uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"assigned_to": assignee,
			"updated_at":  at,
		}).Error
}

func (r *repository) Archive(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND archived_at IS NULL", id).
		Updates(map[string]any{
			"archived_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.LeadStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error) {
	var rows []models.LeadStatusHistory
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) AppendAssignment(ctx context.Context, entry *models.LeadAssignment) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindDealer(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).First(&dealer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

// List returns up to query.Limit rows newest first; the caller passes a limit
// with one row of buffer so a following page can be detected.
func (r *repository) List(ctx context.Context, query listQuery) ([]models.Lead, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Lead{}).Where("archived_at IS NULL")
	if query.Scope.DealerID != nil {
		q = q.Where("dealer_id = ?", *query.Scope.DealerID)
	}
	if query.Scope.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *query.Scope.AssignedTo)
	}
	if query.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *query.AssignedTo)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Source != "" {
		q = q.Where("source = ?", query.Source)
	}

	var rows []models.Lead
	if err := q.Scopes(pagination.Keyset(query.Cursor, query.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, next := pagination.Trim(rows, query.Limit, func(l models.Lead) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return rows, next, nil
}
