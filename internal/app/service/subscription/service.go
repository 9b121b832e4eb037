// Package subscription finalizes period-end cancellations and triggers
// renewal charges on the billing gateway.
package subscription

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/billing"
	"github.com/fatflowers/lifecycle/internal/platform/events"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/window"
)

// Store is the subset of store.Store used by this package.
type Store interface {
	ScanRenewable(ctx context.Context, r window.Range) ([]*models.Subscription, error)
	ScanDueCancellations(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	DeactivateSubscription(ctx context.Context, id string) (bool, error)
	FindUser(ctx context.Context, email string) (*models.User, error)
	SetUserPlan(ctx context.Context, email, plan string) error
}

// BillingGateway charges a user's stored payment profile. The gateway owns
// next_billing_date and last_charged_date.
type BillingGateway interface {
	TriggerRenewal(ctx context.Context, userEmail string) error
}

type Service struct {
	cfg     *config.Config
	store   Store
	billing BillingGateway
	events  events.Publisher
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, st Store, gw BillingGateway, pub events.Publisher, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, billing: gw, events: pub, log: log}
}

var Module = fx.Options(
	fx.Provide(
		func(s *store.Store) Store { return s },
		func(c *billing.Client) BillingGateway { return c },
		NewService,
	),
)
