package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

const defaultPublishTimeout = 10 * time.Second

// TargetKindAttribute lets subscribers filter queued sends without decoding the body.
const TargetKindAttribute = "target_kind"

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// Producer queues send requests for the worker.
type Producer struct {
	pub publisher
}

// NewProducer wraps a Pub/Sub publisher for the send request topic.
func NewProducer(p *pubsub.Publisher) (*Producer, error) {
	if p == nil {
		return nil, errors.New("send publisher required")
	}
	return &Producer{pub: gcpPublisher{p}}, nil
}

// Enqueue publishes req and returns the event id it was tagged with.
// An empty eventID gets a fresh UUID.
func (p *Producer) Enqueue(ctx context.Context, req SendRequest, eventID string) (string, error) {
	if !req.Type.IsValid() {
		return "", fmt.Errorf("invalid send type %q", req.Type)
	}
	if err := req.Payload.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode send request: %w", err)
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			EventIDAttribute:    eventID,
			TargetKindAttribute: string(req.Type),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	if _, err := p.pub.Publish(publishCtx, msg).Get(publishCtx); err != nil {
		return "", fmt.Errorf("publish send request: %w", err)
	}
	return eventID, nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
