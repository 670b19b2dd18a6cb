package devices

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pushrelay-backend/pkg/db"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/pagination"
)

// Service is the device registry.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Deactivate(ctx context.Context, token string) (*models.DeviceToken, error)
	Get(ctx context.Context, token string) (*models.DeviceToken, error)
	ListUserTokens(ctx context.Context, userID string) ([]models.DeviceToken, error)
	ListActivePage(ctx context.Context, params pagination.Params) (*DevicePage, error)
}

// DevicePage is one page of active devices. NextCursor is empty on the last page.
type DevicePage struct {
	Devices    []models.DeviceToken
	NextCursor string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterInput carries a device registration. Nil optional fields leave the
// stored value untouched on re-registration.
type RegisterInput struct {
	Token       string
	Platform    enums.Platform
	UserID      *string
	DeviceID    *string
	AppVersion  *string
	OSVersion   *string
	DeviceModel *string
}

type RegisterResult struct {
	Device  *models.DeviceToken
	Created bool
}

// ServiceParams wires the registry dependencies.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the device registry.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "device repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{repo: params.Repository, tx: params.Tx, logg: params.Logger, now: params.Now}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.Token = strings.TrimSpace(input.Token)
	if input.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if !input.Platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform must be one of android, ios, web")
	}

	result, err := s.upsert(ctx, input)
	if err != nil && db.IsUniqueViolation(err, "") {
		// lost a race with a concurrent registration of the same token
		result, err = s.upsert(ctx, input)
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register device token")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"device_id": result.Device.ID.String(),
		"platform":  result.Device.Platform.String(),
		"created":   result.Created,
	})
	s.logg.Info(logCtx, "device token registered")
	return result, nil
}

func (s *service) upsert(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	now := s.now().UTC()
	existing, err := s.repo.FindByToken(ctx, input.Token)
	if err != nil && !db.IsNotFound(err) {
		return nil, err
	}

	if existing == nil {
		device := &models.DeviceToken{
			Token:       input.Token,
			UserID:      nonEmpty(input.UserID),
			DeviceID:    input.DeviceID,
			Platform:    input.Platform,
			AppVersion:  input.AppVersion,
			OSVersion:   input.OSVersion,
			DeviceModel: input.DeviceModel,
			IsActive:    true,
			LastUsedAt:  now,
		}
		if err := s.repo.Create(ctx, device); err != nil {
			return nil, err
		}
		return &RegisterResult{Device: device, Created: true}, nil
	}

	if owner := nonEmpty(input.UserID); owner != nil {
		existing.UserID = owner
	}
	existing.Platform = input.Platform
	if input.DeviceID != nil {
		existing.DeviceID = input.DeviceID
	}
	if input.AppVersion != nil {
		existing.AppVersion = input.AppVersion
	}
	if input.OSVersion != nil {
		existing.OSVersion = input.OSVersion
	}
	if input.DeviceModel != nil {
		existing.DeviceModel = input.DeviceModel
	}
	existing.IsActive = true
	existing.LastUsedAt = now
	existing.UpdatedAt = now
	if err := s.repo.Save(ctx, existing); err != nil {
		return nil, err
	}
	return &RegisterResult{Device: existing}, nil
}

func (s *service) Deactivate(ctx context.Context, token string) (*models.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	var device *models.DeviceToken
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByToken(ctx, token)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "device token not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device token")
		}
		now := s.now().UTC()
		if err := repo.Deactivate(ctx, found.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate device token")
		}
		found.IsActive = false
		found.UpdatedAt = now
		device = found
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate device token")
	}

	s.logg.Info(s.logg.WithField(ctx, "device_id", device.ID.String()), "device token deactivated")
	return device, nil
}

func (s *service) Get(ctx context.Context, token string) (*models.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	device, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "device token not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load device token")
	}
	return device, nil
}

func (s *service) ListUserTokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	devices, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user device tokens")
	}
	return devices, nil
}

func (s *service) ListActivePage(ctx context.Context, params pagination.Params) (*DevicePage, error) {
	if params.Limit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	devices, next, err := s.repo.PageActive(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "page active device tokens")
	}
	return &DevicePage{Devices: devices, NextCursor: next}, nil
}

func nonEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
