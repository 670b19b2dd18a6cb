package dispatch

import (
	"context"
	"time"

	"firebase.google.com/go/v4/messaging"

	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
)

// DefaultMaxBatchSize is the FCM multicast token limit.
const DefaultMaxBatchSize = 500

const (
	errUnknown         = "unknown error"
	errMissingID       = "missing message id"
	errMissingResponse = "no response from delivery channel"
)

// Channel is the push delivery backend. pkg/fcm.Client implements it.
type Channel interface {
	SendMulticast(ctx context.Context, message *messaging.MulticastMessage, dryRun bool) (*messaging.BatchResponse, error)
	Send(ctx context.Context, message *messaging.Message, dryRun bool) (string, error)
}

type EngineParams struct {
	Channel      Channel
	Decorations  Decorations
	MaxBatchSize int
	Metrics      *metrics.DispatchMetrics
	Logger       *logger.Logger
}

// Engine submits payloads to the delivery channel and builds the result ledger.
type Engine struct {
	channel   Channel
	decor     Decorations
	batchSize int
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Channel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery channel required")
	}
	if params.MaxBatchSize <= 0 || params.MaxBatchSize > DefaultMaxBatchSize {
		params.MaxBatchSize = DefaultMaxBatchSize
	}
	if params.Decorations == (Decorations{}) {
		params.Decorations = DefaultDecorations()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Engine{
		channel:   params.Channel,
		decor:     params.Decorations,
		batchSize: params.MaxBatchSize,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// DispatchToTokens sends payload to every token and returns one Result per
// token in input order. An empty list is a no-op. Tokens go out in chunks of
// the batch size. A channel error on the first chunk fails the whole call with
// CodeChannelFailure since nothing was sent. A channel error on a later chunk
// stops the send: the failed chunk and every unsent token get a failed Result
// carrying the channel error, and the ledger is returned without an error so
// the delivered chunks are still reported.
func (e *Engine) DispatchToTokens(ctx context.Context, tokens []string, payload Payload, dryRun bool) ([]Result, error) {
	if len(tokens) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(tokens))
	for start := 0; start < len(tokens); start += e.batchSize {
		end := min(start+e.batchSize, len(tokens))
		chunk := tokens[start:end]

		began := e.now()
		resp, err := e.channel.SendMulticast(ctx, e.decor.Multicast(chunk, payload), dryRun)
		e.metrics.ObserveChannelCall("multicast", e.now().Sub(began), err)
		if err == nil {
			results = append(results, mapResponses(chunk, resp)...)
			continue
		}

		logCtx := e.logg.WithFields(ctx, map[string]any{
			"tokens":      len(tokens),
			"batch_start": start,
			"delivered":   start,
			"dry_run":     dryRun,
		})
		if start == 0 {
			e.logg.Error(logCtx, "multicast dispatch failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeChannelFailure, err, "failed to send notification").
				WithDetails(map[string]any{"tokens": len(tokens)})
		}
		e.logg.Error(logCtx, "multicast dispatch stopped after partial delivery", err)
		return append(results, failAll(tokens[start:], err)...), nil
	}
	return results, nil
}

// failAll marks tokens the channel never accepted.
func failAll(tokens []string, err error) []Result {
	msg := err.Error()
	if msg == "" {
		msg = errUnknown
	}
	msg = "delivery channel failure: " + msg
	out := make([]Result, len(tokens))
	for i, token := range tokens {
		out[i] = Result{Token: token, Error: msg}
	}
	return out
}

func mapResponses(tokens []string, resp *messaging.BatchResponse) []Result {
	var responses []*messaging.SendResponse
	if resp != nil {
		responses = resp.Responses
	}

	out := make([]Result, len(tokens))
	for i, token := range tokens {
		out[i] = Result{Token: token}
		if i >= len(responses) || responses[i] == nil {
			out[i].Error = errMissingResponse
			continue
		}
		r := responses[i]
		switch {
		case r.Success && r.MessageID != "":
			out[i].Success = true
			out[i].MessageID = r.MessageID
		case r.Success:
			out[i].Error = errMissingID
		case r.Error != nil && r.Error.Error() != "":
			out[i].Error = r.Error.Error()
		default:
			out[i].Error = errUnknown
		}
	}
	return out
}

// DispatchToTopic sends one message addressed to topic. Channel errors become
// a failed TopicResult and are never returned.
func (e *Engine) DispatchToTopic(ctx context.Context, topic string, payload Payload, dryRun bool) TopicResult {
	began := e.now()
	id, err := e.channel.Send(ctx, e.decor.Topic(topic, payload), dryRun)
	e.metrics.ObserveChannelCall("topic", e.now().Sub(began), err)
	if err != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{"topic": topic, "dry_run": dryRun})
		e.logg.Warn(logCtx, "topic dispatch failed: "+err.Error())
		msg := err.Error()
		if msg == "" {
			msg = errUnknown
		}
		return TopicResult{Error: msg}
	}
	if id == "" {
		return TopicResult{Error: errMissingID}
	}
	return TopicResult{Success: true, MessageID: id}
}
