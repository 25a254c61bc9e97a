package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, cause error, attempts int) error
}

// errNonRetryable marks events that can never be published as stored.
var errNonRetryable = errors.New("non-retryable outbox event")

// outcome is what happened to one outbox row in a batch.
type outcome string

const (
	outcomePublished outcome = metrics.OutboxPublished
	outcomeRetry     outcome = metrics.OutboxRetried
	outcomeTerminal  outcome = metrics.OutboxTerminal
	outcomeDeferred  outcome = metrics.OutboxDeferred
)

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	PubSub     pinger
	Repository outboxRepository
	Publisher  publisher
	// Metrics is optional.
	Metrics *metrics.OutboxMetrics
}

// Service drains outbox_events onto the lead events topic, oldest first.
type Service struct {
	logg    *logger.Logger
	db      pinger
	pubsub  pinger
	repo    outboxRepository
	pub     publisher
	metrics *metrics.OutboxMetrics

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.PubSub == nil, "pubsub client"},
		{params.Repository == nil, "outbox repository"},
		{params.Publisher == nil, "publisher"},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		pub:          params.Publisher,
		metrics:      params.Metrics,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// another; repository errors back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, dep := range map[string]pinger{"database": s.db, "pubsub": s.pubsub} {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = withJitter(s.pollInterval)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher context canceled")
	return ctx.Err()
}

// processBatch publishes one batch. A failed row is recorded and the batch
// moves on, but later rows of the same aggregate wait for the next batch so
// subscribers never see them ahead of the failed one. Only repository errors
// abort the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(events) == 0 {
		s.metrics.ObserveLag(0)
		return false, nil
	}
	s.metrics.ObserveLag(s.now().Sub(events[0].CreatedAt))

	stalled := make(map[uuid.UUID]struct{})
	for _, event := range events {
		result := outcomeDeferred
		if _, wait := stalled[event.AggregateID]; !wait {
			if result, err = s.handle(ctx, event); err != nil {
				return true, err
			}
		}
		if result == outcomeRetry {
			stalled[event.AggregateID] = struct{}{}
		}
		s.metrics.Count(string(result))
	}
	return true, nil
}

func (s *Service) handle(ctx context.Context, event models.OutboxEvent) (outcome, error) {
	envelope, decodeErr := outbox.DecodeEnvelope(event.Payload)
	fields := s.eventFields(event, envelope)
	if decodeErr != nil {
		return outcomeTerminal, s.markTerminal(ctx, event, fmt.Errorf("%w: %v", errNonRetryable, decodeErr), fields)
	}

	pubErr := s.publish(ctx, event, envelope)
	switch {
	case pubErr == nil:
		if err := s.repo.MarkPublished(ctx, event.ID, s.now()); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	case errors.Is(pubErr, errNonRetryable):
		return outcomeTerminal, s.markTerminal(ctx, event, pubErr, fields)
	case event.LastAttempt(s.maxAttempts):
		fields["terminal_reason"] = "max_attempts"
		return outcomeTerminal, s.markTerminal(ctx, event, fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	fields["attempt_count"] = event.AttemptCount + 1
	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
	if err := s.repo.MarkFailed(ctx, event.ID, pubErr); err != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

func (s *Service) markTerminal(ctx context.Context, event models.OutboxEvent, cause error, fields map[string]any) error {
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event will not be retried")
	if err := s.repo.MarkTerminal(ctx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// publish sends the stored payload unchanged. The aggregate id is the
// ordering key, so one lead's events reach subscribers in emit order.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	eventID := envelope.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}
	aggregateID := event.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: aggregateID,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   aggregateID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("%w: publisher returned no result", errNonRetryable)
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, max)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
