package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pushrelay-backend/internal/dispatch"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
)

type notificationWriter interface {
	Create(ctx context.Context, notification *models.SentNotification) error
}

// Recorder writes one audit row per dispatch result. Write failures are
// logged and dropped; nothing is written for dry runs.
type Recorder struct {
	repo    notificationWriter
	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
	now     func() time.Time
}

func NewRecorder(repo notificationWriter, logg *logger.Logger, m *metrics.DispatchMetrics) *Recorder {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Recorder{repo: repo, logg: logg, metrics: m, now: time.Now}
}

// RecordTokens logs a multicast ledger. targets, when aligned with results,
// supply the device reference of each row.
func (r *Recorder) RecordTokens(ctx context.Context, payload dispatch.Payload, targets []dispatch.Target, results []dispatch.Result, dryRun bool) int {
	if dryRun || len(results) == 0 {
		return 0
	}
	sentAt := r.now().UTC()
	rows := make([]*models.SentNotification, 0, len(results))
	for i, res := range results {
		var deviceID *uuid.UUID
		if i < len(targets) && targets[i].Token == res.Token {
			deviceID = targets[i].DeviceID
		}
		rows = append(rows, r.row(payload, deviceID, nil, res.Success, res.MessageID, res.Error, sentAt))
	}
	return r.write(ctx, rows)
}

// RecordTopic logs the aggregate outcome of a topic send.
func (r *Recorder) RecordTopic(ctx context.Context, payload dispatch.Payload, topicID *uuid.UUID, res dispatch.TopicResult, dryRun bool) int {
	if dryRun {
		return 0
	}
	row := r.row(payload, nil, topicID, res.Success, res.MessageID, res.Error, r.now().UTC())
	return r.write(ctx, []*models.SentNotification{row})
}

func (r *Recorder) row(payload dispatch.Payload, deviceID, topicID *uuid.UUID, success bool, messageID, errMsg string, sentAt time.Time) *models.SentNotification {
	row := &models.SentNotification{
		DeviceID: deviceID,
		TopicID:  topicID,
		Title:    payload.Title,
		Body:     payload.Body,
		Data:     payload.DataSnapshot(),
		Status:   enums.NotificationStatusFailed,
		SentAt:   sentAt,
	}
	if success {
		row.Status = enums.NotificationStatusSent
		row.MessageID = &messageID
	} else if errMsg != "" {
		row.ErrorMessage = &errMsg
	}
	return row
}

func (r *Recorder) write(ctx context.Context, rows []*models.SentNotification) int {
	if r.repo == nil {
		return 0
	}
	var errs error
	written := 0
	for _, row := range rows {
		if err := r.repo.Create(ctx, row); err != nil {
			errs = multierr.Append(errs, err)
			r.metrics.IncRecorded("error")
			continue
		}
		written++
		r.metrics.IncRecorded("ok")
	}
	if errs != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"failed":  len(multierr.Errors(errs)),
			"written": written,
		})
		r.logg.Error(logCtx, "failed to record sent notifications", errs)
	}
	return written
}
