// Package reminder sends the one-time notice that a subscription renews in
// three days and prunes old reminder records.
package reminder

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/window"
)

const (
	LeadTime  = 3 * 24 * time.Hour
	Span      = 24 * time.Hour
	Retention = 60 * 24 * time.Hour
)

// Range is [now+LeadTime, now+LeadTime+Span) over next_billing_date.
func Range(now time.Time) window.Range {
	lo := now.Add(LeadTime)
	return window.Between("next_billing_date", lo, lo.Add(Span))
}

// Store is the subset of store.Store used by this package.
type Store interface {
	ScanRenewable(ctx context.Context, r window.Range) ([]*models.Subscription, error)
	ActiveReminderExists(ctx context.Context, key models.ReminderKey) (bool, error)
	FindUser(ctx context.Context, email string) (*models.User, error)
	CreateReminder(ctx context.Context, r *models.SubscriptionReminder) error
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	MarkReminderFailed(ctx context.Context, id, reason string) error
	DeleteRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Renderer interface {
	Reminder(v email.ReminderView) (email.Message, error)
}

type Service struct {
	cfg      *config.Config
	store    Store
	sender   email.Sender
	renderer Renderer
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(cfg *config.Config, st Store, sender email.Sender, renderer Renderer, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, sender: sender, renderer: renderer, log: log, now: time.Now}
}

var Module = fx.Options(
	fx.Provide(
		func(s *store.Store) Store { return s },
		func(r *email.Renderer) Renderer { return r },
		NewService,
	),
)
