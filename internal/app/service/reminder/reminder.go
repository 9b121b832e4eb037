package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/pkg/fanout"
	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/tool"
)

const reasonUserNotFound = "user not found"

var errSkipped = errors.New("reminder already exists")

type Summary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (s Summary) Counts() map[string]int64 {
	return map[string]int64{
		"processed": int64(s.Processed),
		"sent":      int64(s.Sent),
		"skipped":   int64(s.Skipped),
		"failed":    int64(s.Failed),
	}
}

// SendReminders notifies the owners of renewable subscriptions whose next
// charge falls in Range(now). A reminder record is written as pending
// before the send and finalized after it, so at most one reminder per
// (user, subscription, billing date) is ever sent.
func (s *Service) SendReminders(ctx context.Context, now time.Time) (*Summary, error) {
	log := logctx.FromCtx(ctx, s.log)

	r := Range(now)
	subs, err := s.store.ScanRenewable(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("scan reminder candidates: %w", err)
	}
	log.Infow("reminder_candidates", "window", r.String(), "count", len(subs))

	outcomes := fanout.Settle(ctx, s.cfg.Jobs.Concurrency, subs, func(ctx context.Context, sub *models.Subscription) error {
		return s.remind(ctx, sub, now)
	})

	sum := &Summary{Processed: len(subs)}
	for _, o := range outcomes {
		switch {
		case o.Err == nil:
			sum.Sent++
		case errors.Is(o.Err, errSkipped):
			sum.Skipped++
		default:
			sum.Failed++
			log.Warnw("reminder_failed", "subscription_id", o.Item.ID, "user_email", o.Item.UserEmail, "err", o.Err)
		}
	}
	log.Infow("reminders_done", "processed", sum.Processed, "sent", sum.Sent, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}

func (s *Service) remind(ctx context.Context, sub *models.Subscription, now time.Time) error {
	rec := &models.SubscriptionReminder{
		ID:               tool.GenerateUUIDV7(),
		UserEmail:        sub.UserEmail,
		SubscriptionID:   sub.ID,
		NextBillingDate:  *sub.NextBillingDate,
		PlanName:         sub.PlanName,
		BillingCycle:     sub.BillingCycle,
		Amount:           sub.Price,
		Currency:         sub.Currency,
		ReminderSentDate: now,
		Status:           models.ReminderStatusPending,
	}

	exists, err := s.store.ActiveReminderExists(ctx, rec.Key())
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return errSkipped
	}

	user, err := s.store.FindUser(ctx, sub.UserEmail)
	if errors.Is(err, store.ErrNotFound) {
		rec.Status = models.ReminderStatusFailed
		rec.ErrorMessage = lo.ToPtr(reasonUserNotFound)
		if cerr := s.store.CreateReminder(ctx, rec); cerr != nil {
			return fmt.Errorf("%s, record not written: %w", reasonUserNotFound, cerr)
		}
		return errors.New(reasonUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	if err := s.store.CreateReminder(ctx, rec); err != nil {
		if errors.Is(err, store.ErrReminderExists) {
			return errSkipped
		}
		return err
	}

	if err := s.deliver(ctx, rec, user); err != nil {
		if merr := s.store.MarkReminderFailed(ctx, rec.ID, err.Error()); merr != nil {
			logctx.FromCtx(ctx, s.log).Errorw("reminder_mark_failed", "id", rec.ID, "err", merr)
		}
		return err
	}
	if err := s.store.MarkReminderSent(ctx, rec.ID, s.now()); err != nil {
		// the email is out; the pending record surfaces as stuck in the health report
		logctx.FromCtx(ctx, s.log).Errorw("reminder_mark_sent", "id", rec.ID, "err", err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, rec *models.SubscriptionReminder, user *models.User) error {
	msg, err := s.renderer.Reminder(email.ReminderView{
		FullName:        user.FullName,
		PlanName:        rec.PlanName,
		BillingCycle:    rec.BillingCycle,
		Amount:          rec.Amount,
		Currency:        rec.Currency,
		NextBillingDate: rec.NextBillingDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, msg, rec.UserEmail)
}

// send relies on the sender for pacing and the provider call timeout.
func (s *Service) send(ctx context.Context, msg email.Message, to string) error {
	ds := s.sender.Send(ctx, msg, []string{to})
	if len(ds) == 0 {
		return errors.New("no delivery reported")
	}
	return ds[0].Err
}
