package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/types"
)

// CleanupReminders deletes reminders of any status created more than
// Retention before now.
func (s *Service) CleanupReminders(ctx context.Context, now time.Time) (types.Count, error) {
	n, err := s.store.DeleteRemindersBefore(ctx, now.Add(-Retention))
	if err != nil {
		return types.Count{}, fmt.Errorf("cleanup reminders: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("reminders_cleaned", "deleted", n)
	return types.Count{Key: "deleted", Value: n}, nil
}

// SendTestReminder renders a sample reminder and sends it to one address.
// Nothing is recorded.
func (s *Service) SendTestReminder(ctx context.Context, to string) error {
	msg, err := s.renderer.Reminder(email.ReminderView{
		FullName:        "Test",
		PlanName:        "Premium",
		BillingCycle:    types.BillingCycleMonthly,
		Amount:          decimal.RequireFromString("99.00"),
		Currency:        "MAD",
		NextBillingDate: s.now().Add(LeadTime),
	})
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg, to); err != nil {
		return fmt.Errorf("send test reminder to %s: %w", to, err)
	}
	logctx.FromCtx(ctx, s.log).Infow("test_reminder_sent", "to", to)
	return nil
}
