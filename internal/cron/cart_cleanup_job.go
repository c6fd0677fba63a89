package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type anonymousCartPurger interface {
	DeleteAnonymousBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartCleanupJobParams struct {
	Logger *logger.Logger
	Carts  anonymousCartPurger
	TTL    time.Duration
}

// NewCartCleanupJob drops anonymous cart lines idle for longer than TTL.
func NewCartCleanupJob(params CartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("anonymous cart ttl must be positive")
	}
	return &cartCleanupJob{
		logg:  params.Logger,
		carts: params.Carts,
		ttl:   params.TTL,
		now:   time.Now,
	}, nil
}

type cartCleanupJob struct {
	logg  *logger.Logger
	carts anonymousCartPurger
	ttl   time.Duration
	now   func() time.Time
}

func (j *cartCleanupJob) Name() string { return "cart-cleanup" }

func (j *cartCleanupJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.carts.DeleteAnonymousBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cart cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "anonymous cart cleanup complete")
	return deleted, nil
}
