// Package store is the gorm-backed Store shared by every processor. Reads
// are snapshots; every mutation is guarded by the predicate that selected
// the row, so a concurrent run that already applied it affects zero rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/tool"
	"github.com/fatflowers/lifecycle/pkg/window"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrReminderExists = errors.New("reminder already exists for billing event")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// renewable narrows subscriptions to those the billing system may charge.
var renewable = []clause.Expression{
	clause.Eq{Column: "is_active", Value: true},
	clause.Expr{SQL: "cancel_at_period_end IS NOT TRUE"},
	clause.Expr{SQL: "payment_profile_id IS NOT NULL AND payment_profile_id <> ''"},
}

// ScanRenewable lists active, non-cancelling subscriptions with a payment
// profile whose next_billing_date lies in r.
func (s *Store) ScanRenewable(ctx context.Context, r window.Range) ([]*models.Subscription, error) {
	return window.Scan[models.Subscription](ctx, s.db, r, renewable...)
}

// CountRenewable counts what ScanRenewable would return.
func (s *Store) CountRenewable(ctx context.Context, r window.Range) (int64, error) {
	return window.Count[models.Subscription](ctx, s.db, r, renewable...)
}

// ScanDueCancellations lists active subscriptions flagged to cancel whose
// period ended at or before now.
func (s *Store) ScanDueCancellations(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	return window.Scan[models.Subscription](ctx, s.db, window.AtOrBefore("period_end_date", now),
		clause.Eq{Column: "is_active", Value: true},
		clause.Eq{Column: "cancel_at_period_end", Value: true},
	)
}

// DeactivateSubscription reports false when the subscription was already inactive.
func (s *Store) DeactivateSubscription(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "cancel_at_period_end": false})
	if res.Error != nil {
		return false, fmt.Errorf("deactivate subscription %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FindUser(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}
	return &u, nil
}

func (s *Store) SetUserPlan(ctx context.Context, email, plan string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Update("plan", plan)
	if res.Error != nil {
		return fmt.Errorf("set plan for %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return nil
}

// ScanExpiredBoosts lists boosted jobs whose boost ended strictly before now.
func (s *Store) ScanExpiredBoosts(ctx context.Context, now time.Time) ([]*models.Job, error) {
	return window.Scan[models.Job](ctx, s.db, window.Before("boost_expiry", now), clause.Eq{Column: "is_boosted", Value: true})
}

// ClearBoost reports false when the job was no longer boosted.
func (s *Store) ClearBoost(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND is_boosted = ?", id, true).
		Update("is_boosted", false)
	if res.Error != nil {
		return false, fmt.Errorf("clear boost on job %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExpireJobPosts marks active or paused listings past their post expiry as expired.
func (s *Store) ExpireJobPosts(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where(window.Before("job_post_expiry", now)).
		Where("status IN ?", []models.JobStatus{models.JobStatusActive, models.JobStatusPaused}).
		Update("status", models.JobStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire job posts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ResetAdvertLimits zeroes quotas whose period started before cutoff and
// starts a new period at now.
func (s *Store) ResetAdvertLimits(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.JobAdvertLimit{}).
		Where(window.Before("updated_at", cutoff)).
		Where("no_of_jobs <> ?", 0).
		Updates(map[string]any{"no_of_jobs": 0, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("reset advert limits: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ActiveReminderExists reports whether a pending or sent reminder already
// covers key.
func (s *Store) ActiveReminderExists(ctx context.Context, key models.ReminderKey) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.SubscriptionReminder{}).
		Where("user_email = ? AND subscription_id = ? AND next_billing_date = ?", key.UserEmail, key.SubscriptionID, key.NextBillingDate).
		Where("status IN ?", []models.ReminderStatus{models.ReminderStatusPending, models.ReminderStatusSent}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check reminder for %s: %w", key.UserEmail, err)
	}
	return n > 0, nil
}

// CreateReminder inserts r, assigning an id when empty. A pending or sent
// reminder for the same key yields ErrReminderExists.
func (s *Store) CreateReminder(ctx context.Context, r *models.SubscriptionReminder) error {
	if r.ID == "" {
		r.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrReminderExists
		}
		return fmt.Errorf("create reminder for %s: %w", r.UserEmail, err)
	}
	return nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return s.finishReminder(ctx, id, map[string]any{"status": models.ReminderStatusSent, "email_sent_at": at})
}

// MarkReminderFailed stores reason as given; error_message is unbounded text.
func (s *Store) MarkReminderFailed(ctx context.Context, id, reason string) error {
	return s.finishReminder(ctx, id, map[string]any{"status": models.ReminderStatusFailed, "error_message": reason})
}

func (s *Store) finishReminder(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.SubscriptionReminder{}).
		Where("id = ? AND status = ?", id, models.ReminderStatusPending).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update reminder %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pending reminder %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteRemindersBefore removes reminders of any status created before cutoff.
func (s *Store) DeleteRemindersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where(window.Before("created_at", cutoff)).Delete(&models.SubscriptionReminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reminders: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ScanDueAlerts lists pending job alerts scheduled at or before now.
func (s *Store) ScanDueAlerts(ctx context.Context, now time.Time) ([]*models.JobAlertNotification, error) {
	return window.Scan[models.JobAlertNotification](ctx, s.db, window.AtOrBefore("scheduled_for", now),
		clause.Eq{Column: "status", Value: models.AlertStatusPending})
}

// CompleteAlert stores the delivery outcome of a pending alert. It reports
// false when another run already completed it.
func (s *Store) CompleteAlert(ctx context.Context, id string, status models.AlertStatus, at time.Time, delivered, failed int) (bool, error) {
	fields := map[string]any{"status": status, "delivered_count": delivered, "failed_count": failed}
	if status == models.AlertStatusSent {
		fields["sent_at"] = at
	}
	res := s.db.WithContext(ctx).Model(&models.JobAlertNotification{}).
		Where("id = ? AND status = ?", id, models.AlertStatusPending).
		Updates(fields)
	if res.Error != nil {
		return false, fmt.Errorf("complete alert %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
