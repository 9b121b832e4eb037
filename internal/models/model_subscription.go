package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/lifecycle/pkg/types"
)

// Subscription is a user's paid plan. Rows are never deleted; a finished
// subscription stays with IsActive=false.
type Subscription struct {
	ID           string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserEmail    string             `gorm:"column:user_email;type:varchar(255);not null;uniqueIndex" json:"user_email"`
	PlanName     string             `gorm:"column:plan_name;type:varchar(64);not null" json:"plan_name"`
	BillingCycle types.BillingCycle `gorm:"column:billing_cycle;type:varchar(16);not null" json:"billing_cycle"`
	UserType     types.UserType     `gorm:"column:user_type;type:varchar(16);not null" json:"user_type"`
	Price        decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Currency     string             `gorm:"column:currency;type:varchar(8);not null;default:MAD" json:"currency"`
	// PaymentProfileID is the stored payment method at the billing provider; empty means it cannot be charged.
	PaymentProfileID *string `gorm:"column:payment_profile_id;type:varchar(128)" json:"payment_profile_id"`
	OrderID          string  `gorm:"column:order_id;type:varchar(128)" json:"order_id"`
	PaymentStatus    string  `gorm:"column:payment_status;type:varchar(32)" json:"payment_status"`
	PaymentMethod    string  `gorm:"column:payment_method;type:varchar(32)" json:"payment_method"`
	// NextBillingDate is advanced only by the billing system after a successful charge.
	NextBillingDate   *time.Time `gorm:"column:next_billing_date;index" json:"next_billing_date"`
	IsActive          bool       `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CancelledAt       *time.Time `gorm:"column:cancelled_at" json:"cancelled_at"`
	CancelAtPeriodEnd bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	// PeriodEndDate is set when CancelAtPeriodEnd is.
	PeriodEndDate   *time.Time `gorm:"column:period_end_date;index" json:"period_end_date"`
	LastChargedDate *time.Time `gorm:"column:last_charged_date" json:"last_charged_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// HasPaymentProfile reports whether the billing provider can charge the subscription.
func (s *Subscription) HasPaymentProfile() bool {
	return s != nil && s.PaymentProfileID != nil && *s.PaymentProfileID != ""
}

// Renewable reports whether the subscription is eligible for a renewal
// trigger when its NextBillingDate falls in the renewal window.
func (s *Subscription) Renewable() bool {
	return s != nil && s.IsActive && !s.CancelAtPeriodEnd && s.HasPaymentProfile()
}
