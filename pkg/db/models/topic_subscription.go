package models

import (
	"time"

	"github.com/google/uuid"
)

// TopicSubscription links a device to a topic. One row per (device, topic);
// unsubscribing flips IsActive instead of deleting.
type TopicSubscription struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey"`
	DeviceID  uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_device_topic_subscriptions_device_topic,priority:1"`
	TopicID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:ux_device_topic_subscriptions_device_topic,priority:2"`
	IsActive  bool         `gorm:"not null"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
	Topic     *Topic       `gorm:"foreignKey:TopicID"`
	Device    *DeviceToken `gorm:"foreignKey:DeviceID"`
}

func (TopicSubscription) TableName() string {
	return "device_topic_subscriptions"
}
