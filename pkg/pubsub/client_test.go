package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/dealercrm-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"crm-prod", "crm-lead-events", "projects/crm-prod/topics/crm-lead-events"},
		{"crm-prod", " crm-lead-events ", "projects/crm-prod/topics/crm-lead-events"},
		{"crm-prod", "projects/other/topics/x", "projects/other/topics/x"},
		{"", "crm-lead-events", ""},
		{"crm-prod", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.LeadEventsPublisher() != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{LeadEventsTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); err != errNoTopic {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestValidateTopic(t *testing.T) {
	valid := []string{
		"projects/crm-prod/topics/crm-lead-events",
		"projects/crm-prod/topics/lead.events~v1",
	}
	for _, topic := range valid {
		if err := validateTopic(topic); err != nil {
			t.Fatalf("expected %q to be valid: %v", topic, err)
		}
	}
	invalid := []string{
		"projects/crm-prod/topics/ab",
		"projects/crm-prod/topics/1-leads",
		"projects/crm-prod/topics/google-leads",
		"projects/crm-prod/subscriptions/leads",
	}
	for _, topic := range invalid {
		if err := validateTopic(topic); err == nil {
			t.Fatalf("expected %q to be rejected", topic)
		}
	}
}

func TestNewClientRejectsMalformedTopicBeforeDialing(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "crm-prod"}, config.PubSubConfig{LeadEventsTopic: "x"}, nil)
	if err == nil || err == errNoTopic {
		t.Fatalf("expected malformed topic error, got %v", err)
	}
}
