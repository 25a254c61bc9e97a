package funnel

import (
	"context"

	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListScoped loads the live leads inside scope and window with only the
// columns aggregation reads.
func (r *Repository) ListScoped(ctx context.Context, scope access.Scope, window Window) ([]models.Lead, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("id", "dealer_id", "assigned_to", "phone", "email", "source", "agent", "consent", "status", "created_at").
		Where("archived_at IS NULL")
	if scope.DealerID != nil {
		q = q.Where("dealer_id = ?", *scope.DealerID)
	}
	if scope.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *scope.AssignedTo)
	}
	if window.From != nil {
		q = q.Where("created_at >= ?", *window.From)
	}
	if window.To != nil {
		q = q.Where("created_at < ?", *window.To)
	}

	var rows []models.Lead
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
