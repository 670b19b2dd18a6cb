package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate hooks assign ids client-side so sqlite and Postgres behave alike.

func (d *DeviceToken) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

func (t *Topic) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (s *TopicSubscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (n *SentNotification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

func (p *NotificationPreferences) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// All lists every model, in dependency order, for AutoMigrate in tests and sqlite mode.
func All() []any {
	return []any{
		&DeviceToken{},
		&Topic{},
		&TopicSubscription{},
		&SentNotification{},
		&NotificationPreferences{},
	}
}
