package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/outbox"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			leadEvent(t, "event-one", 0),
			leadEvent(t, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("transient failure should not be terminal")
	}
}

func TestServiceProcessBatchHoldsBackLaterEventsOfFailedAggregate(t *testing.T) {
	first := leadEvent(t, "lead-a-created", 0)
	second := leadEvent(t, "lead-a-status", 0)
	second.AggregateID = first.AggregateID
	other := leadEvent(t, "lead-b-created", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second, other}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("unavailable")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, nil)
	reg := prometheus.NewRegistry()
	service.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected the held-back event to stay unpublished, sent %d", len(pub.messages))
	}
	if pub.messages[1].Attributes["event_id"] != "lead-b-created" {
		t.Fatalf("unexpected second message %q", pub.messages[1].Attributes["event_id"])
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("expected only the first event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != other.ID {
		t.Fatalf("expected only the other aggregate published, got %v", repo.published)
	}
	expected := `
# HELP crm_outbox_events_total Outbox rows handled by the publisher, by outcome.
# TYPE crm_outbox_events_total counter
crm_outbox_events_total{outcome="deferred"} 1
crm_outbox_events_total{outcome="published"} 1
crm_outbox_events_total{outcome="retried"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "crm_outbox_events_total"); err != nil {
		t.Fatalf("unexpected outbox counters: %v", err)
	}
}

func TestServicePublishSetsAttributes(t *testing.T) {
	event := leadEvent(t, "event-attrs", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_id"] != "event-attrs" {
		t.Fatalf("unexpected event_id attribute %q", msg.Attributes["event_id"])
	}
	if msg.Attributes["event_type"] != string(enums.EventLeadStatusChanged) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", msg.Attributes["aggregate_id"])
	}
	if msg.OrderingKey != event.AggregateID.String() {
		t.Fatalf("expected ordering by aggregate, got %q", msg.OrderingKey)
	}
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatalf("payload should be published as stored")
	}
}

func TestServiceProcessBatchTerminalOnBadEnvelope(t *testing.T) {
	bad := leadEvent(t, "ignored", 0)
	bad.Payload = json.RawMessage(`"not an envelope"`)
	repo := &fakeRepo{events: []models.OutboxEvent{bad}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("bad envelope should not be published")
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != bad.ID {
		t.Fatalf("expected terminal mark for %s, got %v", bad.ID, repo.terminal)
	}
	if repo.terminalAttempts != 5 {
		t.Fatalf("expected attempts exhausted to 5, got %d", repo.terminalAttempts)
	}
	if !errors.Is(repo.terminalErr, errNonRetryable) {
		t.Fatalf("expected non-retryable cause, got %v", repo.terminalErr)
	}
}

func TestServiceProcessBatchTerminalOnMaxAttempts(t *testing.T) {
	event := leadEvent(t, "event-max", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{
		results: []publishResult{fakePublishResult{err: errors.New("boom")}},
	}
	service := newTestService(t, repo, pub, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("max attempts should not record a retryable failure")
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %d", len(repo.terminal))
	}
	if repo.terminalAttempts != 2 {
		t.Fatalf("expected attempts 2, got %d", repo.terminalAttempts)
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatalf("empty batch should report nothing processed")
	}
}

func TestServiceProcessBatchFetchError(t *testing.T) {
	service := newTestService(t, &fakeRepo{fetchErr: errors.New("db down")}, &fakePublisher{}, nil)
	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected first backoff %v", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("expected cap, got %v", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{Outbox: outboxCfg}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         fakePinger{},
		PubSub:     fakePinger{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func leadEvent(tb testing.TB, eventID string, attempts int) models.OutboxEvent {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"from":"new","to":"set"}`),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventLeadStatusChanged,
		AggregateType: enums.AggregateLead,
		AggregateID:   uuid.New(),
		Payload:       raw,
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events           []models.OutboxEvent
	fetchErr         error
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalErr      error
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublished(_ context.Context, _ int, _ int) ([]models.OutboxEvent, error) {
	return f.events, f.fetchErr
}

func (f *fakeRepo) MarkPublished(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminal(_ context.Context, id uuid.UUID, cause error, attempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalErr = cause
	f.terminalAttempts = attempts
	return nil
}

type fakePinger struct{}

func (fakePinger) Ping(context.Context) error { return nil }

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id", nil
}
