package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

// Repository exposes persistence helpers for the sent notification audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.SentNotification) error
	CountByStatus(ctx context.Context, rng StatsRange) (map[enums.NotificationStatus]int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a sent notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.SentNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

type statusCount struct {
	Status enums.NotificationStatus
	Count  int64
}

// CountByStatus groups audit rows by status within the inclusive sent_at range.
func (r *repositoryImpl) CountByStatus(ctx context.Context, rng StatsRange) (map[enums.NotificationStatus]int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SentNotification{})
	if rng.Start != nil {
		query = query.Where("sent_at >= ?", rng.Start.UTC())
	}
	if rng.End != nil {
		query = query.Where("sent_at <= ?", rng.End.UTC())
	}

	var rows []statusCount
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.NotificationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] += row.Count
	}
	return counts, nil
}

// DeleteOlderThan prunes audit rows sent before cutoff.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("sent_at < ?", cutoff.UTC()).
		Delete(&models.SentNotification{})
	return result.RowsAffected, result.Error
}
