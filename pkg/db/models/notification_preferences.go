package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreferences holds a user's opt-ins. Quiet hours are HH:MM strings.
type NotificationPreferences struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           string    `gorm:"type:text;not null;uniqueIndex:ux_user_notification_preferences_user_id"`
	PushEnabled      bool      `gorm:"not null"`
	MarketingEnabled bool      `gorm:"not null"`
	NewsEnabled      bool      `gorm:"not null"`
	ReminderEnabled  bool      `gorm:"not null"`
	QuietHoursStart  *string   `gorm:"type:text"`
	QuietHoursEnd    *string   `gorm:"type:text"`
	Timezone         *string   `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (NotificationPreferences) TableName() string {
	return "user_notification_preferences"
}
