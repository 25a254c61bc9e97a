package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.Observe("incomplete-session-retention", 250*time.Millisecond, nil)
	m.Observe("incomplete-session-retention", time.Millisecond, errors.New("boom"))
	m.Observe("", time.Millisecond, errors.New("boom"))
	m.Skipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success := fetchCounterValue(t, mfs, "crm_cron_job_runs_total", map[string]string{"job": "incomplete-session-retention", "outcome": "success"})
	if success != 1 {
		t.Fatalf("expected success=1, got %f", success)
	}
	unknown := fetchCounterValue(t, mfs, "crm_cron_job_runs_total", map[string]string{"job": "unknown", "outcome": "failure"})
	if unknown != 1 {
		t.Fatalf("expected unknown failure=1, got %f", unknown)
	}
	if got := fetchCounterValue(t, mfs, "crm_cron_job_runs_total", map[string]string{"job": "cycle", "outcome": "skipped"}); got != 1 {
		t.Fatalf("expected one skipped cycle, got %f", got)
	}
	mf := findMetricFamily(mfs, "crm_cron_job_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected duration histogram to be recorded")
	}
}

func TestLeadMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.IncTransition("new", "set")
	m.IncTransition("new", "set")
	m.IncConflict()
	m.IncDenial("update", "leads")
	m.IncCreated("public")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := fetchCounterValue(t, mfs, "crm_lead_transitions_total", map[string]string{"from": "new", "to": "set"}); got != 2 {
		t.Fatalf("expected 2 transitions, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "crm_lead_transition_conflicts_total", nil); got != 1 {
		t.Fatalf("expected 1 conflict, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "crm_access_denials_total", map[string]string{"action": "update", "resource": "leads"}); got != 1 {
		t.Fatalf("expected 1 denial, got %f", got)
	}
}

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("/api/v1/leads/{leadId}", "GET", 200, 15*time.Millisecond)
	m.ObserveRequest("/api/v1/leads/{leadId}", "GET", 200, 5*time.Millisecond)
	m.ObserveRequest("", "GET", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := fetchCounterValue(t, mfs, "crm_http_requests_total", map[string]string{"route": "/api/v1/leads/{leadId}", "status": "200"}); got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "crm_http_requests_total", map[string]string{"route": "unknown", "status": "404"}); got != 1 {
		t.Fatalf("expected unmatched route under unknown, got %f", got)
	}
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Count(OutboxPublished)
	m.Count(OutboxPublished)
	m.Count(OutboxDeferred)
	m.ObserveLag(90 * time.Second)
	m.ObserveLag(-time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := fetchCounterValue(t, mfs, "crm_outbox_events_total", map[string]string{"outcome": OutboxPublished}); got != 2 {
		t.Fatalf("expected 2 published, got %f", got)
	}
	lag := findMetricFamily(mfs, "crm_outbox_oldest_pending_age_seconds")
	if lag == nil || lag.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Fatalf("negative lag should clamp to zero")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var leads *LeadMetrics
	leads.IncConflict()
	leads.IncTransition("a", "b")
	NewLeadMetrics(nil).IncDenial("view", "leads")
	var cron *CronJobMetrics
	cron.Observe("job", time.Second, nil)
	cron.Skipped()
	var web *HTTPMetrics
	web.ObserveRequest("/", "GET", 200, time.Second)
	var outbox *OutboxMetrics
	outbox.Count(OutboxRetried)
	NewOutboxMetrics(nil).ObserveLag(time.Second)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	NewLeadMetrics(reg).IncConflict()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crm_lead_transition_conflicts_total 1") {
		t.Fatalf("conflict counter missing from exposition")
	}
}

func fetchCounterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %q missing labels %v", name, labels)
	return 0
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
