package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ErrLockHeld is returned by RunOnce when another worker owns the cycle.
var ErrLockHeld = errors.New("cron lock held by another instance")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds each job; zero leaves jobs bounded only by the lock TTL.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster-wide lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: params.JobTimeout,
	}, nil
}

// Run fires a cycle immediately and then on every tick until ctx ends.
// Cycle failures are logged, never fatal.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle finished with errors", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs all jobs, continuing past failures, and returns them combined.
func (s *Service) runCycle(ctx context.Context) error {
	var errs error
	ran, err := s.withLease(ctx, func(ctx context.Context) {
		for _, job := range s.registry.Jobs() {
			errs = multierr.Append(errs, s.runJob(ctx, job))
		}
	})
	if err != nil {
		return err
	}
	if !ran {
		s.metrics.Skipped()
		s.logg.Info(ctx, "cron lock held elsewhere; skipping cycle")
	}
	return errs
}

// RunOnce executes a single named job under the cron lock.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Find(name)
	if !ok {
		return fmt.Errorf("cron job %q not registered (known: %s)", name, strings.Join(s.registry.Names(), ", "))
	}
	var jobErr error
	ran, err := s.withLease(ctx, func(ctx context.Context) {
		jobErr = s.runJob(ctx, job)
	})
	if err != nil {
		return err
	}
	if !ran {
		return ErrLockHeld
	}
	return jobErr
}

func (s *Service) withLease(ctx context.Context, fn func(context.Context)) (bool, error) {
	lease, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if lease == nil {
		return false, nil
	}
	leaseCtx := s.logg.WithField(ctx, "lease", lease.Token())
	defer func() {
		if err := lease.Release(context.WithoutCancel(leaseCtx)); err != nil {
			s.logg.Error(leaseCtx, "failed to release cron lock", err)
		}
	}()
	fn(leaseCtx)
	return true, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.Observe(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
