package devices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	"github.com/angelmondragon/pushrelay-backend/pkg/pagination"
)

// Repository exposes persistence helpers for device tokens.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByToken(ctx context.Context, token string) (*models.DeviceToken, error)
	Create(ctx context.Context, device *models.DeviceToken) error
	Save(ctx context.Context, device *models.DeviceToken) error
	Deactivate(ctx context.Context, deviceID uuid.UUID, now time.Time) error
	ListActiveByUser(ctx context.Context, userID string) ([]models.DeviceToken, error)
	ListActiveByPlatform(ctx context.Context, platform enums.Platform) ([]models.DeviceToken, error)
	ListActive(ctx context.Context) ([]models.DeviceToken, error)
	PageActive(ctx context.Context, params pagination.Params) ([]models.DeviceToken, string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a device token repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	var device models.DeviceToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *repositoryImpl) Create(ctx context.Context, device *models.DeviceToken) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *repositoryImpl) Save(ctx context.Context, device *models.DeviceToken) error {
	return r.db.WithContext(ctx).Save(device).Error
}

// Deactivate clears the active flag on the device and every subscription it holds.
func (r *repositoryImpl) Deactivate(ctx context.Context, deviceID uuid.UUID, now time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{"is_active": false, "updated_at": now}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.TopicSubscription{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]any{"is_active": false, "updated_at": now}).Error
}

func (r *repositoryImpl) ListActiveByUser(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	var devices []models.DeviceToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_used_at DESC").
		Find(&devices).Error
	return devices, err
}

func (r *repositoryImpl) ListActiveByPlatform(ctx context.Context, platform enums.Platform) ([]models.DeviceToken, error) {
	var devices []models.DeviceToken
	err := r.db.WithContext(ctx).
		Where("platform = ? AND is_active = ?", platform, true).
		Order("created_at ASC").
		Find(&devices).Error
	return devices, err
}

func (r *repositoryImpl) ListActive(ctx context.Context) ([]models.DeviceToken, error) {
	var devices []models.DeviceToken
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&devices).Error
	return devices, err
}

// PageActive walks active devices oldest first and returns the cursor of the next page, if any.
func (r *repositoryImpl) PageActive(ctx context.Context, params pagination.Params) ([]models.DeviceToken, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Where("is_active = ?", true)
	if cursor != nil {
		qb = qb.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var devices []models.DeviceToken
	if err := qb.Order("created_at ASC").Order("id ASC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&devices).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Trim(devices, params.Limit, func(d models.DeviceToken) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return page, next, nil
}
