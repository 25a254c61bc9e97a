package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	incompleteSessionRetention = 90 * 24 * time.Hour
	// converted sessions only exist for attribution lookups right after submit
	convertedSessionRetention = 7 * 24 * time.Hour
)

type IncompleteSessionRetentionJobParams struct {
	Logger             *logger.Logger
	DB                 txRunner
	Repository         incompleteSessionPurger
	Retention          time.Duration
	ConvertedRetention time.Duration
}

type incompleteSessionPurger interface {
	DeleteIdleBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteConvertedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewIncompleteSessionRetentionJob builds the job that purges abandoned and
// converted intake sessions.
func NewIncompleteSessionRetentionJob(params IncompleteSessionRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("incomplete session repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = incompleteSessionRetention
	}
	converted := params.ConvertedRetention
	if converted <= 0 {
		converted = convertedSessionRetention
	}
	return &incompleteSessionRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		converted: converted,
		now:       time.Now,
	}, nil
}

type incompleteSessionRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      incompleteSessionPurger
	retention time.Duration
	converted time.Duration
	now       func() time.Time
}

func (j *incompleteSessionRetentionJob) Name() string { return "incomplete-session-retention" }

func (j *incompleteSessionRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	if err := j.purge(ctx, "idle", now.Add(-j.retention), j.repo.DeleteIdleBefore); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := j.purge(ctx, "converted", now.Add(-j.converted), j.repo.DeleteConvertedBefore); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (j *incompleteSessionRetentionJob) purge(ctx context.Context, kind string, cutoff time.Time, del func(context.Context, *gorm.DB, time.Time) (int64, error)) error {
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := del(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge %s sessions: %w", kind, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"kind":         kind,
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "incomplete session purge complete")
	return nil
}
