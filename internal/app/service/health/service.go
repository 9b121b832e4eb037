// Package health reports lifecycle drift: records a missed or failed run
// left behind. It only counts; nothing is corrected.
package health

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fatflowers/lifecycle/internal/app/service/reminder"
	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/metrics"
	"github.com/fatflowers/lifecycle/pkg/window"
)

const (
	overdueAfter        = 7 * 24 * time.Hour
	orphanedAfter       = 24 * time.Hour
	staleBoostAfter     = 24 * time.Hour
	stuckAfter          = time.Hour
	successRateSpan     = 30 * 24 * time.Hour
	recentFailuresSpan  = 7 * 24 * time.Hour
	recentFailuresLimit = 5
	minSuccessRate      = 90.0
	minRateSample       = 10
)

type Store interface {
	CountOverdueSubscriptions(ctx context.Context, cutoff time.Time) (int64, error)
	CountOrphanedCancellations(ctx context.Context, cutoff time.Time) (int64, error)
	CountMissingPaymentProfile(ctx context.Context, freePlans []string) (int64, error)
	CountStaleBoosts(ctx context.Context, cutoff time.Time) (int64, error)
	ReminderStatusCounts(ctx context.Context, since time.Time) (map[models.ReminderStatus]int64, error)
	CountStuckReminders(ctx context.Context, cutoff time.Time) (int64, error)
	CountFailedRemindersSince(ctx context.Context, since time.Time) (int64, error)
	CountRenewable(ctx context.Context, r window.Range) (int64, error)
	CountUsersAwaitingDowngrade(ctx context.Context, freePlans []string) (int64, error)
}

type Report struct {
	CheckedAt              time.Time                       `json:"checked_at"`
	OverdueSubscriptions   int64                           `json:"overdue_subscriptions"`
	OrphanedCancellations  int64                           `json:"orphaned_cancellations"`
	MissingPaymentProfile  int64                           `json:"missing_payment_profile"`
	StaleBoosts            int64                           `json:"stale_boosts"`
	RemindersTotal         int64                           `json:"reminders_total"`
	RemindersSent          int64                           `json:"reminders_sent"`
	RemindersByStatus      map[models.ReminderStatus]int64 `json:"reminders_by_status"`
	ReminderSuccessRate    float64                         `json:"reminder_success_rate"`
	StuckReminders         int64                           `json:"stuck_reminders"`
	RecentReminderFailures int64                           `json:"recent_reminder_failures"`
	UpcomingReminders      int64                           `json:"upcoming_reminders"`
	UsersAwaitingDowngrade int64                           `json:"users_awaiting_downgrade"`
	Warnings               []string                        `json:"warnings"`
}

func (r Report) Counts() map[string]int64 {
	return map[string]int64{
		"overdue_subscriptions":    r.OverdueSubscriptions,
		"orphaned_cancellations":   r.OrphanedCancellations,
		"missing_payment_profile":  r.MissingPaymentProfile,
		"stale_boosts":             r.StaleBoosts,
		"stuck_reminders":          r.StuckReminders,
		"recent_reminder_failures": r.RecentReminderFailures,
		"users_awaiting_downgrade": r.UsersAwaitingDowngrade,
		"warnings":                 int64(len(r.Warnings)),
	}
}

// Gauges are the values exported on every check.
func (r Report) Gauges() map[string]float64 {
	g := make(map[string]float64, 12)
	for k, v := range r.Counts() {
		g[k] = float64(v)
	}
	g["reminders_total"] = float64(r.RemindersTotal)
	g["reminders_sent"] = float64(r.RemindersSent)
	g["reminder_success_rate"] = r.ReminderSuccessRate
	g["upcoming_reminders"] = float64(r.UpcomingReminders)
	return g
}

type Service struct {
	cfg     *config.Config
	store   Store
	metrics *metrics.JobMetrics
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, st Store, m *metrics.JobMetrics, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, metrics: m, log: log}
}

// Check runs every count query concurrently and returns the report. Any
// failing query fails the whole check.
func (s *Service) Check(ctx context.Context, now time.Time) (*Report, error) {
	free := s.cfg.Plans.FreeTiers.Plans()
	rep := &Report{CheckedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	count := func(name string, dst *int64, fn func(ctx context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count("overdue subscriptions", &rep.OverdueSubscriptions, func(ctx context.Context) (int64, error) {
		return s.store.CountOverdueSubscriptions(ctx, now.Add(-overdueAfter))
	})
	count("orphaned cancellations", &rep.OrphanedCancellations, func(ctx context.Context) (int64, error) {
		return s.store.CountOrphanedCancellations(ctx, now.Add(-orphanedAfter))
	})
	count("missing payment profile", &rep.MissingPaymentProfile, func(ctx context.Context) (int64, error) {
		return s.store.CountMissingPaymentProfile(ctx, free)
	})
	count("stale boosts", &rep.StaleBoosts, func(ctx context.Context) (int64, error) {
		return s.store.CountStaleBoosts(ctx, now.Add(-staleBoostAfter))
	})
	count("stuck reminders", &rep.StuckReminders, func(ctx context.Context) (int64, error) {
		return s.store.CountStuckReminders(ctx, now.Add(-stuckAfter))
	})
	count("recent reminder failures", &rep.RecentReminderFailures, func(ctx context.Context) (int64, error) {
		return s.store.CountFailedRemindersSince(ctx, now.Add(-recentFailuresSpan))
	})
	count("upcoming reminders", &rep.UpcomingReminders, func(ctx context.Context) (int64, error) {
		return s.store.CountRenewable(ctx, reminder.Range(now))
	})
	count("users awaiting downgrade", &rep.UsersAwaitingDowngrade, func(ctx context.Context) (int64, error) {
		return s.store.CountUsersAwaitingDowngrade(ctx, free)
	})
	g.Go(func() error {
		byStatus, err := s.store.ReminderStatusCounts(gctx, now.Add(-successRateSpan))
		if err != nil {
			return fmt.Errorf("reminder status counts: %w", err)
		}
		rep.RemindersByStatus = byStatus
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	for _, n := range rep.RemindersByStatus {
		rep.RemindersTotal += n
	}
	rep.RemindersSent = rep.RemindersByStatus[models.ReminderStatusSent]
	rep.ReminderSuccessRate = successRate(rep.RemindersSent, rep.RemindersTotal)
	rep.Warnings = warnings(rep)

	s.metrics.SetHealth(rep.Gauges())
	s.logReport(ctx, rep)
	return rep, nil
}

// successRate is sent/total as a percentage with one decimal, 0 when there
// is nothing to rate.
func successRate(sent, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(sent)*1000/float64(total)) / 10
}

func warnings(r *Report) []string {
	var w []string
	if r.RecentReminderFailures > recentFailuresLimit {
		w = append(w, fmt.Sprintf("%d reminder failures in the last 7 days", r.RecentReminderFailures))
	}
	if r.StuckReminders > 0 {
		w = append(w, fmt.Sprintf("%d reminders pending for over an hour", r.StuckReminders))
	}
	if r.ReminderSuccessRate < minSuccessRate && r.RemindersTotal > minRateSample {
		w = append(w, fmt.Sprintf("reminder success rate %.1f%% over %d reminders", r.ReminderSuccessRate, r.RemindersTotal))
	}
	if r.OrphanedCancellations > 0 {
		w = append(w, fmt.Sprintf("%d cancellations past period end still active", r.OrphanedCancellations))
	}
	if r.OverdueSubscriptions > 0 {
		w = append(w, fmt.Sprintf("%d active subscriptions overdue by more than 7 days", r.OverdueSubscriptions))
	}
	if r.StaleBoosts > 0 {
		w = append(w, fmt.Sprintf("%d boosts expired over a day ago still active", r.StaleBoosts))
	}
	return w
}

func (s *Service) logReport(ctx context.Context, r *Report) {
	log := logctx.FromCtx(ctx, s.log)
	log.Infow("health_report",
		"overdue_subscriptions", r.OverdueSubscriptions,
		"orphaned_cancellations", r.OrphanedCancellations,
		"missing_payment_profile", r.MissingPaymentProfile,
		"stale_boosts", r.StaleBoosts,
		"reminder_success_rate", r.ReminderSuccessRate,
		"reminders_sent", r.RemindersSent,
		"reminders_total", r.RemindersTotal,
		"stuck_reminders", r.StuckReminders,
		"recent_reminder_failures", r.RecentReminderFailures,
		"upcoming_reminders", r.UpcomingReminders,
		"users_awaiting_downgrade", r.UsersAwaitingDowngrade,
	)
	for _, w := range r.Warnings {
		log.Warnw("health_warning", "warning", w)
	}
}

var Module = fx.Options(
	fx.Provide(
		func(s *store.Store) Store { return s },
		NewService,
	),
)
