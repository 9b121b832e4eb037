// Package job holds the listing processors: boost expiry, post expiry and
// the advert quota reset.
package job

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
)

// Store is the subset of store.Store used by the job processors.
type Store interface {
	ScanExpiredBoosts(ctx context.Context, now time.Time) ([]*models.Job, error)
	ClearBoost(ctx context.Context, id string) (bool, error)
	ExpireJobPosts(ctx context.Context, now time.Time) (int64, error)
	ResetAdvertLimits(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type Service struct {
	store Store
	log   *zap.SugaredLogger
}

func NewService(st Store, log *zap.SugaredLogger) *Service {
	return &Service{store: st, log: log}
}

var Module = fx.Options(
	fx.Provide(
		func(s *store.Store) Store { return s },
		NewService,
	),
)
