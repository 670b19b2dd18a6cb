package topics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
)

// Repository exposes persistence helpers for topics and subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTopicByName(ctx context.Context, name string) (*models.Topic, error)
	CreateTopicIfAbsent(ctx context.Context, topic *models.Topic) error
	UpsertSubscription(ctx context.Context, deviceID, topicID uuid.UUID, now time.Time) (*models.TopicSubscription, error)
	DeactivateSubscription(ctx context.Context, deviceID, topicID uuid.UUID, now time.Time) (int64, error)
	ListActiveTopics(ctx context.Context) ([]models.Topic, error)
	ListActiveSubscriptions(ctx context.Context, deviceID uuid.UUID) ([]models.TopicSubscription, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a topic repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindTopicByName(ctx context.Context, name string) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// CreateTopicIfAbsent inserts the topic unless one with the same name exists.
func (r *repositoryImpl) CreateTopicIfAbsent(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(topic).Error
}

// UpsertSubscription activates the (device, topic) row, creating it on first
// subscribe. CreatedAt of an existing row is left alone.
func (r *repositoryImpl) UpsertSubscription(ctx context.Context, deviceID, topicID uuid.UUID, now time.Time) (*models.TopicSubscription, error) {
	sub := &models.TopicSubscription{
		DeviceID:  deviceID,
		TopicID:   topicID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "topic_id"}},
			DoUpdates: clause.Assignments(map[string]any{"is_active": true, "updated_at": now}),
		}).
		Create(sub).Error
	if err != nil {
		return nil, err
	}

	var stored models.TopicSubscription
	if err := r.db.WithContext(ctx).
		Where("device_id = ? AND topic_id = ?", deviceID, topicID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repositoryImpl) DeactivateSubscription(ctx context.Context, deviceID, topicID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TopicSubscription{}).
		Where("device_id = ? AND topic_id = ?", deviceID, topicID).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListActiveTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&topics).Error
	return topics, err
}

func (r *repositoryImpl) ListActiveSubscriptions(ctx context.Context, deviceID uuid.UUID) ([]models.TopicSubscription, error) {
	var subs []models.TopicSubscription
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Where("device_id = ? AND is_active = ?", deviceID, true).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}
