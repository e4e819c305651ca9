package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mortarline/notify-backend/pkg/logger"
)

const defaultInactiveDays = 30

type subscriptionPurgeRepo interface {
	DeleteInactiveBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// SubscriptionPurgeJobParams configure the stale-subscription purge.
type SubscriptionPurgeJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   subscriptionPurgeRepo
	InactiveDays int
}

// NewSubscriptionPurgeJob removes push subscriptions that were deactivated
// (endpoint gone, push service returned 404/410) and stayed inactive past the
// window. Active rows are never touched.
func NewSubscriptionPurgeJob(params SubscriptionPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	inactive := params.InactiveDays
	if inactive <= 0 {
		inactive = defaultInactiveDays
	}
	return &subscriptionPurgeJob{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repository,
		inactive: inactive,
		now:      time.Now,
	}, nil
}

type subscriptionPurgeJob struct {
	logg     *logger.Logger
	db       txRunner
	repo     subscriptionPurgeRepo
	inactive int
	now      func() time.Time
}

func (j *subscriptionPurgeJob) Name() string { return "subscription-purge" }

func (j *subscriptionPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.inactive) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteInactiveBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscription purge: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"inactive_days": j.inactive,
		"rows_deleted":  deleted,
	})
	j.logg.Info(logCtx, "subscription purge complete")
	return nil
}
