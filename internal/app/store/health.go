package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/window"
)

// Read-only counters for the health monitor. None of them mutate.

func (s *Store) CountOverdueSubscriptions(ctx context.Context, cutoff time.Time) (int64, error) {
	return window.Count[models.Subscription](ctx, s.db, window.Before("next_billing_date", cutoff),
		clause.Eq{Column: "is_active", Value: true})
}

func (s *Store) CountOrphanedCancellations(ctx context.Context, cutoff time.Time) (int64, error) {
	return window.Count[models.Subscription](ctx, s.db, window.Before("period_end_date", cutoff),
		clause.Eq{Column: "is_active", Value: true},
		clause.Eq{Column: "cancel_at_period_end", Value: true})
}

// CountMissingPaymentProfile counts active paid subscriptions that the
// billing system cannot charge.
func (s *Store) CountMissingPaymentProfile(ctx context.Context, freePlans []string) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("is_active = ?", true).
		Where("price > 0").
		Where("payment_profile_id IS NULL OR payment_profile_id = ''")
	if len(freePlans) > 0 {
		q = q.Where("plan_name NOT IN ?", freePlans)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count missing payment profiles: %w", err)
	}
	return n, nil
}

func (s *Store) CountStaleBoosts(ctx context.Context, cutoff time.Time) (int64, error) {
	return window.Count[models.Job](ctx, s.db, window.Before("boost_expiry", cutoff),
		clause.Eq{Column: "is_boosted", Value: true})
}

// ReminderStatusCounts groups reminders created since by status.
func (s *Store) ReminderStatusCounts(ctx context.Context, since time.Time) (map[models.ReminderStatus]int64, error) {
	var rows []struct {
		Status models.ReminderStatus
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&models.SubscriptionReminder{}).
		Select("status, count(*) AS n").
		Where(window.Since("created_at", since)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count reminders by status: %w", err)
	}
	out := make(map[models.ReminderStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *Store) CountStuckReminders(ctx context.Context, cutoff time.Time) (int64, error) {
	return window.Count[models.SubscriptionReminder](ctx, s.db, window.Before("created_at", cutoff),
		clause.Eq{Column: "status", Value: models.ReminderStatusPending})
}

func (s *Store) CountFailedRemindersSince(ctx context.Context, since time.Time) (int64, error) {
	return window.Count[models.SubscriptionReminder](ctx, s.db, window.Since("created_at", since),
		clause.Eq{Column: "status", Value: models.ReminderStatusFailed})
}

// CountUsersAwaitingDowngrade counts users still on a paid plan without any
// active subscription, the trace of a cancellation whose plan reset failed.
func (s *Store) CountUsersAwaitingDowngrade(ctx context.Context, freePlans []string) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Where("NOT EXISTS (SELECT 1 FROM ? s WHERE s.user_email = users.email AND s.is_active = ?)",
			clause.Table{Name: models.Subscription{}.TableName()}, true)
	if len(freePlans) > 0 {
		q = q.Where("plan NOT IN ?", freePlans)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users awaiting downgrade: %w", err)
	}
	return n, nil
}
