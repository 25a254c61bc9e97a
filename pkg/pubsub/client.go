// Package pubsub binds the Pub/Sub v2 client to the CRM's lead events topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub lead events topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// topicIDRe is Pub/Sub's topic naming rule: 3-255 chars, starting with a
// letter, and never beginning with "goog".
var topicIDRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_.~+%]{2,254}$`)

type Client struct {
	client *pubsub.Client
	topic  string

	mu         sync.Mutex
	leadEvents *pubsub.Publisher
}

// NewClient connects and fails fast when the lead events topic is missing
// or malformed. PUBSUB_EMULATOR_HOST is honoured by the underlying client.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.LeadEventsTopic) == "" {
		return nil, errNoTopic
	}
	topic := TopicResourceName(projectID, cfg.LeadEventsTopic)
	if err := validateTopic(topic); err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	}
	return c, nil
}

// LeadEventsPublisher returns the shared ordered publisher for lead events.
// Messages sharing an ordering key are delivered in publish order.
func (c *Client) LeadEventsPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leadEvents == nil {
		c.leadEvents = c.client.Publisher(c.topic)
		c.leadEvents.EnableMessageOrdering = true
	}
	return c.leadEvents
}

// Ping checks that the lead events topic exists and is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("topic %q does not exist", c.topic)
	}
	if err != nil {
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes before releasing the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	if c.leadEvents != nil {
		c.leadEvents.Stop()
	}
	c.mu.Unlock()
	return c.client.Close()
}

// TopicResourceName expands a bare topic id into projects/<p>/topics/<id>.
// Already-qualified names pass through so another project can be targeted.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	projectID = strings.TrimSpace(projectID)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case projectID == "":
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}

func validateTopic(resource string) error {
	_, id, ok := strings.Cut(resource, "/topics/")
	if !ok || !topicIDRe.MatchString(id) || strings.HasPrefix(strings.ToLower(id), "goog") {
		return fmt.Errorf("invalid pubsub topic %q", resource)
	}
	return nil
}
