package models

import (
	"time"

	"github.com/google/uuid"
)

// Topic is a named broadcast channel devices subscribe to.
type Topic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:text;not null;uniqueIndex:ux_topics_name"`
	Description *string   `gorm:"type:text"`
	IsActive    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
