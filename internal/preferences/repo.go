package preferences

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
)

// Repository persists per-user notification preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	CreateIfAbsent(ctx context.Context, prefs *models.NotificationPreferences) error
	Save(ctx context.Context, prefs *models.NotificationPreferences) error
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByUser(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error; err != nil {
		return nil, err
	}
	return &prefs, nil
}

// CreateIfAbsent inserts prefs unless the user already has a row.
func (r *repositoryImpl) CreateIfAbsent(ctx context.Context, prefs *models.NotificationPreferences) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(prefs).Error
}

func (r *repositoryImpl) Save(ctx context.Context, prefs *models.NotificationPreferences) error {
	return r.db.WithContext(ctx).Save(prefs).Error
}
