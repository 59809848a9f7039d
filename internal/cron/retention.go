package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
)

const (
	OutboxRetentionJobName = "outbox_retention"
	CartRetentionJobName   = "cart_retention"
)

// PurgeFunc deletes rows older than cutoff and reports how many went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// RetentionJob drops rows that fell out of a rolling window.
type RetentionJob struct {
	name   string
	window time.Duration
	purge  PurgeFunc
	logg   *logger.Logger
	now    func() time.Time
}

func NewRetentionJob(name string, window time.Duration, purge PurgeFunc, logg *logger.Logger) (*RetentionJob, error) {
	switch {
	case name == "":
		return nil, errors.New("retention job name required")
	case window <= 0:
		return nil, fmt.Errorf("%s: retention window must be positive", name)
	case purge == nil:
		return nil, fmt.Errorf("%s: purge func required", name)
	case logg == nil:
		return nil, fmt.Errorf("%s: logger required", name)
	}
	return &RetentionJob{name: name, window: window, purge: purge, logg: logg, now: time.Now}, nil
}

func (j *RetentionJob) Name() string { return j.name }

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"window_hours": int(j.window.Hours()),
		"rows_deleted": deleted,
	}), "retention.purged")
	return nil
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxPurge deletes published outbox rows, and rows that used up
// maxAttempts, inside one transaction.
func OutboxPurge(runner db.TxRunner, repo outboxPurger, maxAttempts int) PurgeFunc {
	return func(ctx context.Context, cutoff time.Time) (int64, error) {
		var deleted int64
		err := runner.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := repo.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
			deleted = n
			return err
		})
		return deleted, err
	}
}
