package fcm

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// messenger is the subset of *messaging.Client used here.
type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SendEachForMulticastDryRun(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Client is the Firebase Cloud Messaging delivery channel.
type Client struct {
	messaging messenger
	logg      *logger.Logger
}

// NewClient initialises the Firebase app and its messaging client. Inline
// service-account JSON takes precedence over a credentials file; with neither,
// application default credentials are used.
func NewClient(ctx context.Context, cfg config.FirebaseConfig, logg *logger.Logger) (*Client, error) {
	app, err := firebase.NewApp(ctx, appConfig(cfg), clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "firebase_project_id", cfg.ProjectID), "fcm client initialized")
	}
	return &Client{messaging: msgClient, logg: logg}, nil
}

func appConfig(cfg config.FirebaseConfig) *firebase.Config {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil
	}
	return &firebase.Config{ProjectID: projectID}
}

func clientOptions(cfg config.FirebaseConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// SendMulticast submits one batched message; per-token outcomes are in the response.
func (c *Client) SendMulticast(ctx context.Context, message *messaging.MulticastMessage, dryRun bool) (*messaging.BatchResponse, error) {
	if message == nil {
		return nil, fmt.Errorf("multicast message is required")
	}
	var (
		resp *messaging.BatchResponse
		err  error
	)
	if dryRun {
		resp, err = c.messaging.SendEachForMulticastDryRun(ctx, message)
	} else {
		resp, err = c.messaging.SendEachForMulticast(ctx, message)
	}
	if err != nil {
		return nil, fmt.Errorf("send fcm multicast: %w", err)
	}
	if c.logg != nil {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
			"tokens":        len(message.Tokens),
			"success_count": resp.SuccessCount,
			"failure_count": resp.FailureCount,
			"dry_run":       dryRun,
		}), "fcm multicast sent")
	}
	return resp, nil
}

// Send delivers a single message, typically addressed to a topic.
func (c *Client) Send(ctx context.Context, message *messaging.Message, dryRun bool) (string, error) {
	if message == nil {
		return "", fmt.Errorf("message is required")
	}
	var (
		id  string
		err error
	)
	if dryRun {
		id, err = c.messaging.SendDryRun(ctx, message)
	} else {
		id, err = c.messaging.Send(ctx, message)
	}
	if err != nil {
		return "", fmt.Errorf("send fcm message: %w", err)
	}
	return id, nil
}

// SubscribeToTopic registers tokens with an FCM topic.
func (c *Client) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := c.messaging.SubscribeToTopic(ctx, tokens, topic)
	return topicManagementError("subscribe", resp, err)
}

// UnsubscribeFromTopic removes tokens from an FCM topic.
func (c *Client) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := c.messaging.UnsubscribeFromTopic(ctx, tokens, topic)
	return topicManagementError("unsubscribe", resp, err)
}

func topicManagementError(op string, resp *messaging.TopicManagementResponse, err error) error {
	if err != nil {
		return fmt.Errorf("fcm topic %s: %w", op, err)
	}
	if resp == nil || resp.FailureCount == 0 {
		return nil
	}
	reasons := make([]string, 0, len(resp.Errors))
	for _, info := range resp.Errors {
		if info != nil {
			reasons = append(reasons, info.Reason)
		}
	}
	return fmt.Errorf("fcm topic %s: %d token(s) failed: %s", op, resp.FailureCount, strings.Join(reasons, "; "))
}
