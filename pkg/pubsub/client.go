package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// Role selects which send-queue resource a process depends on.
type Role int

const (
	// RoleConsumer needs the send subscription (the worker).
	RoleConsumer Role = iota
	// RoleProducer needs the send topic (pushctl enqueue).
	RoleProducer
)

func (r Role) String() string {
	if r == RoleProducer {
		return "producer"
	}
	return "consumer"
}

var errProjectIDRequired = errors.New("gcp project id is required")

// Client wraps a Pub/Sub v2 client bound to the send queue resources in PubSubConfig.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role

	mu         sync.Mutex
	publishers []*pubsub.Publisher
}

// NewClient dials Pub/Sub and checks that the resource needed by role exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: projectID, cfg: cfg, role: role}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"pubsub_project": projectID,
			"pubsub_role":    role.String(),
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms the role's topic or subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if c.role == RoleProducer {
		name := c.resourceName("topics", c.cfg.SendTopic)
		if name == "" {
			return errors.New("pubsub send topic is required")
		}
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		return lookupError("topic", name, err)
	}
	name := c.resourceName("subscriptions", c.cfg.SendSubscription)
	if name == "" {
		return errors.New("pubsub send subscription is required")
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	return lookupError("subscription", name, err)
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// SendSubscription returns the worker's subscriber with flow control from config.
func (c *Client) SendSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.resourceName("subscriptions", c.cfg.SendSubscription)
	if name == "" {
		return nil
	}
	sub := c.client.Subscriber(name)
	if c.cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstanding
	}
	if c.cfg.ReceiveWorkers > 0 {
		sub.ReceiveSettings.NumGoroutines = c.cfg.ReceiveWorkers
	}
	return sub
}

// SendPublisher returns a publisher for the send topic. Close flushes it.
func (c *Client) SendPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.resourceName("topics", c.cfg.SendTopic)
	if name == "" {
		return nil
	}
	pub := c.client.Publisher(name)
	c.mu.Lock()
	c.publishers = append(c.publishers, pub)
	c.mu.Unlock()
	return pub
}

// Close flushes handed-out publishers and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	c.publishers = nil
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id to projects/<project>/<collection>/<id>.
// Fully-qualified names pass through unchanged.
func (c *Client) resourceName(collection, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + collection + "/" + n
}
