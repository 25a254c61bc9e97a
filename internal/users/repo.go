package users

import (
	"context"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes agent account persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail expects an already lowercased address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by last then first name. A nil dealerID lists
// every account.
func (r *Repository) List(ctx context.Context, dealerID *uuid.UUID) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if dealerID != nil {
		q = q.Where("dealer_id = ?", *dealerID)
	}
	var rows []models.User
	err := q.Order("last_name ASC").Order("first_name ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": at}).Error
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": at}).Error
}

// UpdatePasswordHash swaps in a hash computed with newer Argon2 parameters.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": at}).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
