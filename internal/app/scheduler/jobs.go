package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/job"
	"github.com/fatflowers/lifecycle/internal/app/service/jobalert"
	"github.com/fatflowers/lifecycle/internal/app/service/reminder"
	"github.com/fatflowers/lifecycle/internal/app/service/subscription"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/types"
)

const (
	JobRenewal          = "renewal"
	JobCancellation     = "cancellation"
	JobBoostExpiry      = "boost_expiry"
	JobPostExpiry       = "job_expiry"
	JobAdvertLimitReset = "advert_limit_reset"
	JobAlerts           = "job_alerts"
	JobReminders        = "reminders"
	JobReminderCleanup  = "reminder_cleanup"
	JobHealth           = "health"
)

// RunFunc is one processor pass evaluated at now.
type RunFunc func(ctx context.Context, now time.Time) (types.RunSummary, error)

// Job binds a processor to its cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      RunFunc
}

func summarize[S types.RunSummary](fn func(context.Context, time.Time) (S, error)) RunFunc {
	return func(ctx context.Context, now time.Time) (types.RunSummary, error) {
		s, err := fn(ctx, now)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type Processors struct {
	fx.In

	Jobs          *job.Service
	Subscriptions *subscription.Service
	Reminders     *reminder.Service
	Alerts        *jobalert.Service
	Health        *health.Service
}

// NewJobs lists every scheduled processor with its configured cadence.
func NewJobs(cfg *config.Config, p Processors) []Job {
	sc := cfg.Schedules
	return []Job{
		{Name: JobRenewal, Schedule: sc.Renewal, Run: summarize(p.Subscriptions.TriggerRenewals)},
		{Name: JobCancellation, Schedule: sc.Cancellation, Run: summarize(p.Subscriptions.FinalizeCancellations)},
		{Name: JobBoostExpiry, Schedule: sc.BoostExpiry, Run: summarize(p.Jobs.ExpireBoosts)},
		{Name: JobPostExpiry, Schedule: sc.JobExpiry, Run: summarize(p.Jobs.ExpirePosts)},
		{Name: JobAdvertLimitReset, Schedule: sc.AdvertLimitReset, Run: summarize(p.Jobs.ResetAdvertLimits)},
		{Name: JobAlerts, Schedule: sc.JobAlerts, Run: summarize(p.Alerts.DispatchDue)},
		{Name: JobReminders, Schedule: sc.Reminders, Run: summarize(p.Reminders.SendReminders)},
		{Name: JobReminderCleanup, Schedule: sc.ReminderCleanup, Run: summarize(p.Reminders.CleanupReminders)},
		{Name: JobHealth, Schedule: sc.Health, Run: summarize(p.Health.Check)},
	}
}
