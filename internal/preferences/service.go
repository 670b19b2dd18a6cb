package preferences

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

const defaultTimezone = "UTC"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Service reads and updates notification opt-ins.
type Service interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Update(ctx context.Context, userID string, input UpdateInput) (*models.NotificationPreferences, error)
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	PushEnabled      *bool   `json:"pushEnabled"`
	MarketingEnabled *bool   `json:"marketingEnabled"`
	NewsEnabled      *bool   `json:"newsEnabled"`
	ReminderEnabled  *bool   `json:"reminderEnabled"`
	QuietHoursStart  *string `json:"quietHoursStart"`
	QuietHoursEnd    *string `json:"quietHoursEnd"`
	Timezone         *string `json:"timezone"`
}

func (in UpdateInput) validate() error {
	details := map[string]string{}
	for field, value := range map[string]*string{"quietHoursStart": in.QuietHoursStart, "quietHoursEnd": in.QuietHoursEnd} {
		if value != nil && *value != "" && !clockPattern.MatchString(*value) {
			details[field] = "must be HH:MM"
		}
	}
	if in.Timezone != nil && *in.Timezone != "" {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			details["timezone"] = "unknown timezone"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification preferences").WithDetails(details)
	}
	return nil
}

type ServiceParams struct {
	Repository Repository
	Logger     *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preferences repository required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repository, logg: params.Logger}, nil
}

// Get returns the user's preferences, creating the defaults on first read.
func (s *service) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}

	prefs, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification preferences")
	}

	if err := s.repo.CreateIfAbsent(ctx, Defaults(userID)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification preferences")
	}
	prefs, err = s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification preferences")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID), "default notification preferences created")
	return prefs, nil
}

// Update applies input over the stored (or default) preferences.
func (s *service) Update(ctx context.Context, userID string, input UpdateInput) (*models.NotificationPreferences, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.PushEnabled != nil {
		prefs.PushEnabled = *input.PushEnabled
	}
	if input.MarketingEnabled != nil {
		prefs.MarketingEnabled = *input.MarketingEnabled
	}
	if input.NewsEnabled != nil {
		prefs.NewsEnabled = *input.NewsEnabled
	}
	if input.ReminderEnabled != nil {
		prefs.ReminderEnabled = *input.ReminderEnabled
	}
	if input.QuietHoursStart != nil {
		prefs.QuietHoursStart = emptyToNil(*input.QuietHoursStart)
	}
	if input.QuietHoursEnd != nil {
		prefs.QuietHoursEnd = emptyToNil(*input.QuietHoursEnd)
	}
	if input.Timezone != nil {
		prefs.Timezone = emptyToNil(*input.Timezone)
	}

	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notification preferences")
	}
	return prefs, nil
}

// Defaults returns the preferences a user starts with.
func Defaults(userID string) *models.NotificationPreferences {
	tz := defaultTimezone
	return &models.NotificationPreferences{
		UserID:          userID,
		PushEnabled:     true,
		NewsEnabled:     true,
		ReminderEnabled: true,
		Timezone:        &tz,
	}
}

func emptyToNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
