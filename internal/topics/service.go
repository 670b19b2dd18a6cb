package topics

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// topicNamePattern mirrors the names FCM accepts for topic messaging.
var topicNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\-_.~%]{1,900}$`)

// Service is the topic registry.
type Service interface {
	Subscribe(ctx context.Context, token, topicName string) (*Subscription, error)
	Unsubscribe(ctx context.Context, token, topicName string) (int64, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)
	ListDeviceSubscriptions(ctx context.Context, token string) ([]models.TopicSubscription, error)
	GetOrCreateTopic(ctx context.Context, name string) (*models.Topic, error)
	FindTopic(ctx context.Context, name string) (*models.Topic, error)
}

type deviceFinder interface {
	FindByToken(ctx context.Context, token string) (*models.DeviceToken, error)
}

// MembershipSyncer mirrors local subscriptions onto the delivery channel.
type MembershipSyncer interface {
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
}

// Subscription is the outcome of a subscribe call.
type Subscription struct {
	Record *models.TopicSubscription
	Topic  *models.Topic
}

// ServiceParams wires the topic registry. Syncer is optional.
type ServiceParams struct {
	Repository Repository
	Devices    deviceFinder
	Syncer     MembershipSyncer
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo    Repository
	devices deviceFinder
	syncer  MembershipSyncer
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "topic repository required")
	}
	if params.Devices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "device lookup required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:    params.Repository,
		devices: params.Devices,
		syncer:  params.Syncer,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

func (s *service) Subscribe(ctx context.Context, token, topicName string) (*Subscription, error) {
	token, topicName, err := normalizeInput(token, topicName)
	if err != nil {
		return nil, err
	}

	device, err := s.findDevice(ctx, token)
	if err != nil {
		return nil, err
	}
	topic, err := s.GetOrCreateTopic(ctx, topicName)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.UpsertSubscription(ctx, device.ID, topic.ID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save topic subscription")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"device_id": device.ID.String(), "topic": topic.Name})
	if s.syncer != nil {
		if err := s.syncer.SubscribeToTopic(ctx, []string{device.Token}, topic.Name); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "topic membership sync failed")
		}
	}
	s.logg.Info(logCtx, "device subscribed to topic")
	return &Subscription{Record: record, Topic: topic}, nil
}

func (s *service) Unsubscribe(ctx context.Context, token, topicName string) (int64, error) {
	token, topicName, err := normalizeInput(token, topicName)
	if err != nil {
		return 0, err
	}

	device, err := s.findDevice(ctx, token)
	if err != nil {
		return 0, err
	}
	topic, err := s.FindTopic(ctx, topicName)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.DeactivateSubscription(ctx, device.ID, topic.ID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate topic subscription")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"device_id": device.ID.String(), "topic": topic.Name})
	if s.syncer != nil {
		if err := s.syncer.UnsubscribeFromTopic(ctx, []string{device.Token}, topic.Name); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "topic membership sync failed")
		}
	}
	s.logg.Info(logCtx, "device unsubscribed from topic")
	return count, nil
}

func (s *service) ListTopics(ctx context.Context) ([]models.Topic, error) {
	topics, err := s.repo.ListActiveTopics(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list topics")
	}
	return topics, nil
}

func (s *service) ListDeviceSubscriptions(ctx context.Context, token string) ([]models.TopicSubscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	device, err := s.findDevice(ctx, token)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListActiveSubscriptions(ctx, device.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list device subscriptions")
	}
	return subs, nil
}

// GetOrCreateTopic returns the named topic, creating it on first use.
func (s *service) GetOrCreateTopic(ctx context.Context, name string) (*models.Topic, error) {
	name = strings.TrimSpace(name)
	if err := ValidateTopicName(name); err != nil {
		return nil, err
	}

	topic, err := s.repo.FindTopicByName(ctx, name)
	if err == nil {
		return topic, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load topic")
	}

	description := fmt.Sprintf("Auto-created topic: %s", name)
	if err := s.repo.CreateTopicIfAbsent(ctx, &models.Topic{Name: name, Description: &description, IsActive: true}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create topic")
	}
	topic, err = s.repo.FindTopicByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load topic")
	}
	s.logg.Info(s.logg.WithField(ctx, "topic", name), "topic created")
	return topic, nil
}

func (s *service) FindTopic(ctx context.Context, name string) (*models.Topic, error) {
	topic, err := s.repo.FindTopicByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "topic not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load topic")
	}
	return topic, nil
}

func (s *service) findDevice(ctx context.Context, token string) (*models.DeviceToken, error) {
	device, err := s.devices.FindByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "device token not found, register the device first")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device token")
	}
	return device, nil
}

// ValidateTopicName rejects names the delivery channel would refuse.
func ValidateTopicName(name string) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "topic name is required")
	}
	if !topicNamePattern.MatchString(name) {
		return pkgerrors.New(pkgerrors.CodeValidation, "topic name may only contain letters, digits and -_.~%").
			WithDetails(map[string]any{"topic": name})
	}
	return nil
}

func normalizeInput(token, topicName string) (string, string, error) {
	token = strings.TrimSpace(token)
	topicName = strings.TrimSpace(topicName)
	if token == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if err := ValidateTopicName(topicName); err != nil {
		return "", "", err
	}
	return token, topicName, nil
}
