package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/events"
	"github.com/fatflowers/lifecycle/pkg/fanout"
	"github.com/fatflowers/lifecycle/pkg/logctx"
)

var (
	errUserMissing = errors.New("owning user not found")
	errConverged   = errors.New("subscription already inactive")
)

type CancellationSummary struct {
	Processed   int `json:"processed"`
	Cancelled   int `json:"cancelled"`
	UserMissing int `json:"user_missing"`
	Failed      int `json:"failed"`
}

func (s CancellationSummary) Counts() map[string]int64 {
	return map[string]int64{
		"processed":    int64(s.Processed),
		"cancelled":    int64(s.Cancelled),
		"user_missing": int64(s.UserMissing),
		"failed":       int64(s.Failed),
	}
}

// FinalizeCancellations deactivates subscriptions whose paid period ended
// at or before now and moves their owners to the free plan of their user
// type. The subscription is deactivated first; if the plan change then
// fails the subscription stays inactive and the user shows up in the health
// report as awaiting downgrade.
func (s *Service) FinalizeCancellations(ctx context.Context, now time.Time) (*CancellationSummary, error) {
	log := logctx.FromCtx(ctx, s.log)

	subs, err := s.store.ScanDueCancellations(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("scan due cancellations: %w", err)
	}

	outcomes := fanout.Settle(ctx, s.cfg.Jobs.Concurrency, subs, s.cancel)

	sum := &CancellationSummary{Processed: len(subs)}
	for _, o := range outcomes {
		switch {
		case o.Err == nil:
			sum.Cancelled++
		case errors.Is(o.Err, errConverged):
		case errors.Is(o.Err, errUserMissing):
			sum.UserMissing++
			log.Warnw("cancellation_user_missing", "subscription_id", o.Item.ID, "user_email", o.Item.UserEmail)
		default:
			sum.Failed++
			log.Errorw("cancellation_failed", "subscription_id", o.Item.ID, "user_email", o.Item.UserEmail, "err", o.Err)
		}
	}
	log.Infow("cancellations_done", "processed", sum.Processed, "cancelled", sum.Cancelled,
		"user_missing", sum.UserMissing, "failed", sum.Failed)
	return sum, nil
}

func (s *Service) cancel(ctx context.Context, sub *models.Subscription) error {
	changed, err := s.store.DeactivateSubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	if !changed {
		return errConverged
	}

	user, err := s.store.FindUser(ctx, sub.UserEmail)
	if errors.Is(err, store.ErrNotFound) {
		return errUserMissing
	}
	if err != nil {
		return fmt.Errorf("subscription deactivated, user not downgraded: %w", err)
	}

	userType := user.UserType
	if userType == "" {
		userType = sub.UserType
	}
	plan, err := s.cfg.Plans.FreeTiers.For(userType)
	if err != nil {
		return fmt.Errorf("subscription deactivated, user not downgraded: %w", err)
	}
	if err := s.store.SetUserPlan(ctx, user.Email, plan); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUserMissing
		}
		return fmt.Errorf("subscription deactivated, user not downgraded: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_cancelled", "subscription_id", sub.ID,
		"user_email", sub.UserEmail, "previous_plan", user.Plan, "plan", plan)

	ev := events.SubscriptionCancelled{
		SubscriptionID: sub.ID,
		UserEmail:      sub.UserEmail,
		UserType:       string(userType),
		PreviousPlan:   sub.PlanName,
		FreePlan:       plan,
	}
	if sub.PeriodEndDate != nil {
		ev.PeriodEndDate = *sub.PeriodEndDate
	}
	if err := s.events.Publish(ctx, events.RoutingSubscriptionCancelled, ev); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("publish_failed", "routing_key", events.RoutingSubscriptionCancelled, "err", err)
	}
	return nil
}
