package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/lifecycle/pkg/types"
)

type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
	ReminderStatusFailed  ReminderStatus = "failed"
)

// ReminderIndexName is the partial unique index allowing one pending or sent
// reminder per (user_email, subscription_id, next_billing_date).
const ReminderIndexName = "uniq_reminder_active_key"

// SubscriptionReminder records one upcoming-renewal notice. The plan and
// amount are copied from the subscription when the reminder is created.
type SubscriptionReminder struct {
	ID               string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserEmail        string             `gorm:"column:user_email;type:varchar(255);not null;index:idx_reminder_key,priority:1" json:"user_email"`
	SubscriptionID   string             `gorm:"column:subscription_id;type:uuid;not null;index:idx_reminder_key,priority:2" json:"subscription_id"`
	NextBillingDate  time.Time          `gorm:"column:next_billing_date;not null;index:idx_reminder_key,priority:3" json:"next_billing_date"`
	PlanName         string             `gorm:"column:plan_name;type:varchar(64)" json:"plan_name"`
	BillingCycle     types.BillingCycle `gorm:"column:billing_cycle;type:varchar(16)" json:"billing_cycle"`
	Amount           decimal.Decimal    `gorm:"column:amount;type:numeric(12,2)" json:"amount"`
	Currency         string             `gorm:"column:currency;type:varchar(8)" json:"currency"`
	ReminderSentDate time.Time          `gorm:"column:reminder_sent_date" json:"reminder_sent_date"`
	Status           ReminderStatus     `gorm:"column:status;type:varchar(16);not null;default:pending;index" json:"status"`
	EmailSentAt      *time.Time         `gorm:"column:email_sent_at" json:"email_sent_at"`
	ErrorMessage     *string            `gorm:"column:error_message;type:text" json:"error_message"`
	CreatedAt        time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (SubscriptionReminder) TableName() string {
	return "subscription_reminders"
}

// ReminderKey identifies the billing event a reminder announces.
type ReminderKey struct {
	UserEmail       string
	SubscriptionID  string
	NextBillingDate time.Time
}

func (r *SubscriptionReminder) Key() ReminderKey {
	return ReminderKey{UserEmail: r.UserEmail, SubscriptionID: r.SubscriptionID, NextBillingDate: r.NextBillingDate}
}
