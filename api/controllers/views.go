package controllers

import (
	"time"

	"github.com/angelmondragon/pushrelay-backend/internal/topics"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

type deviceView struct {
	ID          string         `json:"id"`
	Token       string         `json:"fcmToken"`
	UserID      *string        `json:"userId,omitempty"`
	DeviceID    *string        `json:"deviceId,omitempty"`
	Platform    enums.Platform `json:"platform"`
	AppVersion  *string        `json:"appVersion,omitempty"`
	OSVersion   *string        `json:"osVersion,omitempty"`
	DeviceModel *string        `json:"deviceModel,omitempty"`
	IsActive    bool           `json:"isActive"`
	LastUsedAt  time.Time      `json:"lastUsedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func newDeviceView(d *models.DeviceToken) deviceView {
	return deviceView{
		ID:          d.ID.String(),
		Token:       d.Token,
		UserID:      d.UserID,
		DeviceID:    d.DeviceID,
		Platform:    d.Platform,
		AppVersion:  d.AppVersion,
		OSVersion:   d.OSVersion,
		DeviceModel: d.DeviceModel,
		IsActive:    d.IsActive,
		LastUsedAt:  d.LastUsedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func newDeviceViews(rows []models.DeviceToken) []deviceView {
	out := make([]deviceView, 0, len(rows))
	for i := range rows {
		out = append(out, newDeviceView(&rows[i]))
	}
	return out
}

type topicView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newTopicView(t *models.Topic) topicView {
	return topicView{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
	}
}

type subscriptionView struct {
	ID        string     `json:"id"`
	TopicID   string     `json:"topicId"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	Topic     *topicView `json:"topic,omitempty"`
}

func newSubscriptionView(s *models.TopicSubscription) subscriptionView {
	view := subscriptionView{
		ID:        s.ID.String(),
		TopicID:   s.TopicID.String(),
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
	if s.Topic != nil {
		tv := newTopicView(s.Topic)
		view.Topic = &tv
	}
	return view
}

func newSubscriptionFromResult(sub *topics.Subscription) subscriptionView {
	view := newSubscriptionView(sub.Record)
	if view.Topic == nil && sub.Topic != nil {
		tv := newTopicView(sub.Topic)
		view.Topic = &tv
	}
	return view
}

type preferencesView struct {
	UserID           string    `json:"userId"`
	PushEnabled      bool      `json:"pushEnabled"`
	MarketingEnabled bool      `json:"marketingEnabled"`
	NewsEnabled      bool      `json:"newsEnabled"`
	ReminderEnabled  bool      `json:"reminderEnabled"`
	QuietHoursStart  *string   `json:"quietHoursStart"`
	QuietHoursEnd    *string   `json:"quietHoursEnd"`
	Timezone         *string   `json:"timezone"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newPreferencesView(p *models.NotificationPreferences) preferencesView {
	return preferencesView{
		UserID:           p.UserID,
		PushEnabled:      p.PushEnabled,
		MarketingEnabled: p.MarketingEnabled,
		NewsEnabled:      p.NewsEnabled,
		ReminderEnabled:  p.ReminderEnabled,
		QuietHoursStart:  p.QuietHoursStart,
		QuietHoursEnd:    p.QuietHoursEnd,
		Timezone:         p.Timezone,
		UpdatedAt:        p.UpdatedAt,
	}
}
