package dealers

import (
	"context"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes dealer persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, dealer *models.Dealer) error {
	return r.db.WithContext(ctx).Create(dealer).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).First(&dealer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&dealer).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

// List returns every dealer ordered by slug.
func (r *Repository) List(ctx context.Context) ([]models.Dealer, error) {
	var rows []models.Dealer
	err := r.db.WithContext(ctx).Order("slug ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  active,
			"updated_at": at,
		}).Error
}
