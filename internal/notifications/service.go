package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pushrelay-backend/internal/dispatch"
	"github.com/angelmondragon/pushrelay-backend/internal/topics"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
)

// SendRequest is the unified send command accepted by the HTTP API, the CLI
// and the Pub/Sub worker.
type SendRequest struct {
	Type     enums.TargetKind `json:"type"`
	UserID   string           `json:"userId,omitempty"`
	Tokens   []string         `json:"fcmTokens,omitempty"`
	Topic    string           `json:"topicName,omitempty"`
	Platform enums.Platform   `json:"platform,omitempty"`
	Payload  dispatch.Payload `json:"payload"`
	DryRun   bool             `json:"dryRun,omitempty"`
}

// SendResponse reports a unified send. Results is set for token sends and
// Topic for topic sends.
type SendResponse struct {
	Type        enums.TargetKind      `json:"type"`
	Success     bool                  `json:"success"`
	TotalSent   int                   `json:"totalSent"`
	TotalFailed int                   `json:"totalFailed"`
	Results     []dispatch.Result     `json:"results,omitempty"`
	Topic       *dispatch.TopicResult `json:"topic,omitempty"`
}

// Service is the send facade over target resolution, dispatch and the audit trail.
type Service interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
	SendToUser(ctx context.Context, userID string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	SendToTokens(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	SendToTopic(ctx context.Context, topic string, payload dispatch.Payload, dryRun bool) (*dispatch.TopicResult, error)
	SendToPlatform(ctx context.Context, platform enums.Platform, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	SendToAll(ctx context.Context, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error)
	Stats(ctx context.Context, rng StatsRange) (*Stats, error)
}

type topicFinder interface {
	FindTopic(ctx context.Context, name string) (*models.Topic, error)
}

type ServiceParams struct {
	Resolver    *dispatch.Resolver
	Engine      *dispatch.Engine
	Recorder    *Recorder
	Aggregator  *Aggregator
	Topics      topicFinder
	Metrics     *metrics.DispatchMetrics
	Logger      *logger.Logger
	ForceDryRun bool
}

type service struct {
	resolver    *dispatch.Resolver
	engine      *dispatch.Engine
	recorder    *Recorder
	aggregator  *Aggregator
	topics      topicFinder
	metrics     *metrics.DispatchMetrics
	logg        *logger.Logger
	forceDryRun bool
}

// NewService builds the send facade.
func NewService(params ServiceParams) (Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "target resolver required")
	}
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch engine required")
	}
	if params.Recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification recorder required")
	}
	if params.Aggregator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stats aggregator required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		resolver:    params.Resolver,
		engine:      params.Engine,
		recorder:    params.Recorder,
		aggregator:  params.Aggregator,
		topics:      params.Topics,
		metrics:     params.Metrics,
		logg:        params.Logger,
		forceDryRun: params.ForceDryRun,
	}, nil
}

func (s *service) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	kind, err := enums.ParseTargetKind(string(req.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
	}

	if kind == enums.TargetTopic {
		res, err := s.SendToTopic(ctx, req.Topic, req.Payload, req.DryRun)
		if err != nil {
			return nil, err
		}
		sent, failed := res.Counts()
		return &SendResponse{Type: kind, Success: true, TotalSent: sent, TotalFailed: failed, Topic: res}, nil
	}

	res, err := s.sendToSelector(ctx, dispatch.Selector{
		Kind:     kind,
		UserID:   req.UserID,
		Tokens:   req.Tokens,
		Platform: req.Platform,
	}, req.Payload, req.DryRun)
	if err != nil {
		return nil, err
	}
	return &SendResponse{
		Type:        kind,
		Success:     res.Success,
		TotalSent:   res.TotalSent,
		TotalFailed: res.TotalFailed,
		Results:     res.Results,
	}, nil
}

func (s *service) SendToUser(ctx context.Context, userID string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.sendToSelector(ctx, dispatch.Selector{Kind: enums.TargetUser, UserID: userID}, payload, dryRun)
}

func (s *service) SendToTokens(ctx context.Context, tokens []string, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.sendToSelector(ctx, dispatch.Selector{Kind: enums.TargetTokens, Tokens: tokens}, payload, dryRun)
}

func (s *service) SendToPlatform(ctx context.Context, platform enums.Platform, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.sendToSelector(ctx, dispatch.Selector{Kind: enums.TargetPlatform, Platform: platform}, payload, dryRun)
}

func (s *service) SendToAll(ctx context.Context, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	return s.sendToSelector(ctx, dispatch.Selector{Kind: enums.TargetAll}, payload, dryRun)
}

func (s *service) SendToTopic(ctx context.Context, topic string, payload dispatch.Payload, dryRun bool) (*dispatch.TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if err := topics.ValidateTopicName(topic); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	dryRun = dryRun || s.forceDryRun

	logCtx := s.logg.WithTarget(ctx, string(enums.TargetTopic))
	logCtx = s.logg.WithFields(logCtx, map[string]any{"topic": topic, "dry_run": dryRun})

	res := s.engine.DispatchToTopic(ctx, topic, payload, dryRun)
	sent, failed := res.Counts()
	s.metrics.ObserveResults(string(enums.TargetTopic), sent, failed)

	if !dryRun {
		s.recorder.RecordTopic(ctx, payload, s.lookupTopicID(ctx, topic), res, dryRun)
	}
	if res.Success {
		s.logg.Info(logCtx, "topic notification sent")
	} else {
		s.logg.Warn(logCtx, "topic notification failed")
	}
	return &res, nil
}

func (s *service) Stats(ctx context.Context, rng StatsRange) (*Stats, error) {
	return s.aggregator.Stats(ctx, rng)
}

func (s *service) sendToSelector(ctx context.Context, sel dispatch.Selector, payload dispatch.Payload, dryRun bool) (*dispatch.SendResult, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	dryRun = dryRun || s.forceDryRun

	logCtx := s.logg.WithTarget(ctx, string(sel.Kind))
	if sel.UserID != "" {
		logCtx = s.logg.WithUserID(logCtx, sel.UserID)
	}

	targets, err := s.resolver.Resolve(ctx, sel)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	results, err := s.engine.DispatchToTokens(ctx, dispatch.Tokens(targets), payload, dryRun)
	if err != nil {
		s.logg.Error(logCtx, "dispatch failed", err)
		return nil, err
	}
	s.recorder.RecordTokens(ctx, payload, targets, results, dryRun)

	summary := dispatch.Summarize(results)
	s.metrics.ObserveResults(string(sel.Kind), summary.TotalSent, summary.TotalFailed)

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"tokens":       len(targets),
		"total_sent":   summary.TotalSent,
		"total_failed": summary.TotalFailed,
		"dry_run":      dryRun,
		"duration_ms":  time.Since(began).Milliseconds(),
	})
	s.logg.Info(logCtx, "notification dispatched")
	return &summary, nil
}

func (s *service) lookupTopicID(ctx context.Context, name string) *uuid.UUID {
	if s.topics == nil {
		return nil
	}
	topic, err := s.topics.FindTopic(ctx, name)
	if err != nil || topic == nil {
		return nil
	}
	id := topic.ID
	return &id
}
