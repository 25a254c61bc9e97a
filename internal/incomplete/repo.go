package incomplete

import (
	"context"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxOpenSessions bounds a single worklist scan.
const maxOpenSessions = 5000

// hasContactSQL mirrors models.IncompleteLeadSession.HasContact.
const hasContactSQL = "COALESCE(phone, '') <> '' OR COALESCE(email, '') <> ''"

type Repository struct {
	db        *gorm.DB
	scanLimit int
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, scanLimit: maxOpenSessions}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, scanLimit: r.scanLimit}
}

func (r *Repository) FindByKey(ctx context.Context, dealerID uuid.UUID, sessionKey string) (*models.IncompleteLeadSession, error) {
	var session models.IncompleteLeadSession
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND session_key = ?", dealerID, sessionKey).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) Create(ctx context.Context, session *models.IncompleteLeadSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) Save(ctx context.Context, session *models.IncompleteLeadSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// ListOpen returns unconverted sessions, those with a phone or email first,
// each group most recently active first. The scan is capped, so sessions left
// out are the oldest contactless ones. A nil dealerID spans every dealer.
func (r *Repository) ListOpen(ctx context.Context, dealerID *uuid.UUID) ([]models.IncompleteLeadSession, error) {
	var rows []models.IncompleteLeadSession
	err := r.open(ctx, dealerID).
		Order("CASE WHEN " + hasContactSQL + " THEN 0 ELSE 1 END").
		Order("last_activity DESC").
		Order("id ASC").
		Limit(r.scanLimit).
		Find(&rows).Error
	return rows, err
}

// CountOpen counts every unconverted session, including those past the scan cap.
func (r *Repository) CountOpen(ctx context.Context, dealerID *uuid.UUID) (int64, error) {
	var n int64
	err := r.open(ctx, dealerID).Model(&models.IncompleteLeadSession{}).Count(&n).Error
	return n, err
}

func (r *Repository) open(ctx context.Context, dealerID *uuid.UUID) *gorm.DB {
	q := r.db.WithContext(ctx).Where("converted_at IS NULL")
	if dealerID != nil {
		q = q.Where("dealer_id = ?", *dealerID)
	}
	return q
}

// Retire moves a converted session off its key so the same contact can open a
// fresh session. The row itself stays until retention removes it.
func (r *Repository) Retire(ctx context.Context, session *models.IncompleteLeadSession, at time.Time) error {
	retired := session.SessionKey + "#" + session.ID.String()
	err := r.db.WithContext(ctx).
		Model(&models.IncompleteLeadSession{}).
		Where("id = ? AND converted_at IS NOT NULL", session.ID).
		Updates(map[string]any{
			"session_key": retired,
			"updated_at":  at,
		}).Error
	if err != nil {
		return err
	}
	session.SessionKey = retired
	return nil
}

// MarkConverted closes the open session with the given key. Missing or
// already converted sessions are left untouched.
func (r *Repository) MarkConverted(ctx context.Context, tx *gorm.DB, dealerID uuid.UUID, sessionKey string, leadID uuid.UUID, at time.Time) error {
	return r.WithTx(tx).db.WithContext(ctx).
		Model(&models.IncompleteLeadSession{}).
		Where("dealer_id = ? AND session_key = ? AND converted_at IS NULL", dealerID, sessionKey).
		Updates(map[string]any{
			"converted_at": at,
			"lead_id":      leadID,
			"updated_at":   at,
		}).Error
}

// DeleteIdleBefore removes unconverted sessions last touched before cutoff.
func (r *Repository) DeleteIdleBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := r.WithTx(tx).db.WithContext(ctx).
		Where("converted_at IS NULL AND last_activity < ?", cutoff).
		Delete(&models.IncompleteLeadSession{})
	return res.RowsAffected, res.Error
}

// DeleteConvertedBefore removes sessions converted before cutoff.
func (r *Repository) DeleteConvertedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := r.WithTx(tx).db.WithContext(ctx).
		Where("converted_at IS NOT NULL AND converted_at < ?", cutoff).
		Delete(&models.IncompleteLeadSession{})
	return res.RowsAffected, res.Error
}
