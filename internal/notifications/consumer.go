package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/idempotency"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// SendRequestConsumer is the idempotency consumer name of the send worker.
const SendRequestConsumer = "push-send-worker"

// EventIDAttribute carries the publisher-assigned id used for deduplication.
const EventIDAttribute = "event_id"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

// Consumer drains queued send requests from Pub/Sub into the send facade.
type Consumer struct {
	sender       sender
	subscription receiver
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a send request consumer.
func NewConsumer(svc sender, subscription receiver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, errors.New("notification service required")
	}
	if subscription == nil {
		return nil, errors.New("send subscription required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{
		sender:       svc,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventID := strings.TrimSpace(msg.Attributes[EventIDAttribute])
	if eventID == "" {
		eventID = msg.ID
	}
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_id":   eventID,
	})

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, SendRequestConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "send request already processed")
		return processResult{ack: true}
	}

	var req SendRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.logg.Error(logCtx, "failed to decode send request", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithTarget(logCtx, string(req.Type))

	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		if retryable(err) {
			c.logg.Error(logCtx, "send request failed, releasing for redelivery", err)
			if delErr := c.idempotency.Delete(ctx, SendRequestConsumer, eventID); delErr != nil {
				c.logg.Error(logCtx, "failed to release idempotency mark", delErr)
			}
			return processResult{nack: true}
		}
		c.logg.Warn(logCtx, "send request rejected: "+err.Error())
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"total_sent":   resp.TotalSent,
		"total_failed": resp.TotalFailed,
	})
	c.logg.Info(logCtx, "send request processed")
	return processResult{ack: true}
}

func retryable(err error) bool {
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.MetadataFor(typed.Code()).Retryable
	}
	return true
}
