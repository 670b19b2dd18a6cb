package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

// StatsRange bounds sent_at inclusively. A nil bound is open.
type StatsRange struct {
	Start *time.Time
	End   *time.Time
}

type Stats struct {
	Total     int64 `json:"total"`
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
}

type statsReader interface {
	CountByStatus(ctx context.Context, rng StatsRange) (map[enums.NotificationStatus]int64, error)
}

// Aggregator reads delivery counts from the audit trail.
type Aggregator struct {
	repo statsReader
}

func NewAggregator(repo statsReader) *Aggregator {
	return &Aggregator{repo: repo}
}

func (a *Aggregator) Stats(ctx context.Context, rng StatsRange) (*Stats, error) {
	if rng.Start != nil && rng.End != nil && rng.Start.After(*rng.End) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start must not be after end")
	}

	counts, err := a.repo.CountByStatus(ctx, rng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sent notifications")
	}

	stats := &Stats{
		Sent:      counts[enums.NotificationStatusSent],
		Delivered: counts[enums.NotificationStatusDelivered],
		Failed:    counts[enums.NotificationStatusFailed],
		Pending:   counts[enums.NotificationStatusPending],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
