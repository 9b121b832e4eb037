package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/fanout"
	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/window"
)

type RenewalSummary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (s RenewalSummary) Counts() map[string]int64 {
	return map[string]int64{"processed": int64(s.Processed), "succeeded": int64(s.Succeeded), "failed": int64(s.Failed)}
}

// RenewalRange is the scan for subscriptions whose next charge is due
// within lead of now. Overdue charges stay inside it.
func RenewalRange(now time.Time, lead time.Duration) window.Range {
	return window.AtOrBefore("next_billing_date", now.Add(lead))
}

// TriggerRenewals asks the billing gateway to charge every renewable
// subscription due within the configured window. Calls are not retried in
// the same run; the gateway advancing next_billing_date is what takes a
// subscription out of the next scan.
func (s *Service) TriggerRenewals(ctx context.Context, now time.Time) (*RenewalSummary, error) {
	log := logctx.FromCtx(ctx, s.log)

	subs, err := s.store.ScanRenewable(ctx, RenewalRange(now, s.cfg.Billing.RenewalWindow()))
	if err != nil {
		return nil, fmt.Errorf("scan renewable subscriptions: %w", err)
	}

	outcomes := fanout.Settle(ctx, s.cfg.Billing.Concurrency, subs, s.renew)

	sum := &RenewalSummary{Processed: len(subs)}
	for _, o := range outcomes {
		if o.Err != nil {
			sum.Failed++
			log.Warnw("renewal_trigger_failed", "subscription_id", o.Item.ID, "user_email", o.Item.UserEmail, "err", o.Err)
			continue
		}
		sum.Succeeded++
	}
	log.Infow("renewals_done", "processed", sum.Processed, "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum, nil
}

func (s *Service) renew(ctx context.Context, sub *models.Subscription) error {
	if timeout := s.cfg.Billing.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.billing.TriggerRenewal(ctx, sub.UserEmail)
}
