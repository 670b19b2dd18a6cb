package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// RetentionJobName identifies the sent notification retention job in logs and metrics.
const RetentionJobName = "sent-notification-retention"

type retentionRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type RetentionJobParams struct {
	Logger     *logger.Logger
	Repository retentionRepo
	Retention  time.Duration
}

// NewRetentionJob prunes sent notification audit rows older than Retention.
// A zero Retention yields a job that does nothing.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Retention < 0 {
		return nil, fmt.Errorf("retention must be non-negative")
	}
	return &retentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type retentionJob struct {
	logg      *logger.Logger
	repo      retentionRepo
	retention time.Duration
	now       func() time.Time
}

func (j *retentionJob) Name() string { return RetentionJobName }

func (j *retentionJob) Run(ctx context.Context) error {
	if j.retention == 0 {
		j.logg.Info(ctx, "retention disabled; skipping")
		return nil
	}
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sent notification retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": int(j.retention.Hours() / 24),
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "sent notification retention complete")
	return nil
}
