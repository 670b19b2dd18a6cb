package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

// SentNotification is the append-only audit row written per dispatch result.
type SentNotification struct {
	ID           uuid.UUID                `gorm:"type:uuid;primaryKey"`
	DeviceID     *uuid.UUID               `gorm:"type:uuid;index:idx_sent_notifications_device_id"`
	TopicID      *uuid.UUID               `gorm:"type:uuid;index:idx_sent_notifications_topic_id"`
	Title        string                   `gorm:"type:text;not null"`
	Body         string                   `gorm:"type:text;not null"`
	Data         datatypes.JSONMap        `gorm:"not null"`
	MessageID    *string                  `gorm:"type:text"`
	Status       enums.NotificationStatus `gorm:"type:text;not null;index:idx_sent_notifications_status"`
	ErrorMessage *string                  `gorm:"type:text"`
	SentAt       time.Time                `gorm:"not null;index:idx_sent_notifications_sent_at"`
	DeliveredAt  *time.Time
}
