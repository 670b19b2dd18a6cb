package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

// DeviceToken is a registered push token. Rows are never hard-deleted.
type DeviceToken struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Token       string         `gorm:"type:text;not null;uniqueIndex:ux_device_tokens_token"`
	UserID      *string        `gorm:"type:text;index:idx_device_tokens_user_id"`
	DeviceID    *string        `gorm:"type:text"`
	Platform    enums.Platform `gorm:"type:text;not null;index:idx_device_tokens_platform"`
	AppVersion  *string        `gorm:"type:text"`
	OSVersion   *string        `gorm:"column:os_version;type:text"`
	DeviceModel *string        `gorm:"type:text"`
	IsActive    bool           `gorm:"not null"`
	LastUsedAt  time.Time      `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}
