package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/lifecycle/pkg/types"
)

type TransactionType string

const (
	TransactionTypeInitialPayment   TransactionType = "initial_payment"
	TransactionTypeRecurringPayment TransactionType = "recurring_payment"
	TransactionTypeJobBoost         TransactionType = "job_boost"
	TransactionTypeRefund           TransactionType = "refund"
)

// TransactionHistory is the append-only payment ledger written by the main
// backend. The orchestrator reads it for revenue statistics.
type TransactionHistory struct {
	ID                   string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TransactionID        string             `gorm:"column:transaction_id;type:varchar(128);not null;uniqueIndex" json:"transaction_id"`
	OrderID              string             `gorm:"column:order_id;type:varchar(128);index" json:"order_id"`
	UserEmail            string             `gorm:"column:user_email;type:varchar(255);not null;index" json:"user_email"`
	UserType             types.UserType     `gorm:"column:user_type;type:varchar(16)" json:"user_type"`
	SubscriptionID       *string            `gorm:"column:subscription_id;type:uuid" json:"subscription_id"`
	PlanName             string             `gorm:"column:plan_name;type:varchar(64)" json:"plan_name"`
	BillingCycle         types.BillingCycle `gorm:"column:billing_cycle;type:varchar(16)" json:"billing_cycle"`
	JobID                *string            `gorm:"column:job_id;type:varchar(64)" json:"job_id"`
	BoostDuration        *int               `gorm:"column:boost_duration" json:"boost_duration"`
	TransactionType      TransactionType    `gorm:"column:transaction_type;type:varchar(32);not null;index" json:"transaction_type"`
	Amount               decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency             string             `gorm:"column:currency;type:varchar(8);not null;default:MAD" json:"currency"`
	PaymentMethod        string             `gorm:"column:payment_method;type:varchar(32)" json:"payment_method"`
	PaymentProfileID     *string            `gorm:"column:payment_profile_id;type:varchar(128)" json:"payment_profile_id"`
	Status               string             `gorm:"column:status;type:varchar(16);not null;default:completed" json:"status"`
	GatewayTransactionID string             `gorm:"column:gateway_transaction_id;type:varchar(128)" json:"gateway_transaction_id"`
	BillingPeriodStart   *time.Time         `gorm:"column:billing_period_start" json:"billing_period_start"`
	BillingPeriodEnd     *time.Time         `gorm:"column:billing_period_end" json:"billing_period_end"`
	BoostStartDate       *time.Time         `gorm:"column:boost_start_date" json:"boost_start_date"`
	BoostEndDate         *time.Time         `gorm:"column:boost_end_date" json:"boost_end_date"`
	Description          string             `gorm:"column:description;type:text" json:"description"`
	CreatedAt            time.Time          `gorm:"index" json:"created_at"`
	ProcessedAt          *time.Time         `gorm:"column:processed_at" json:"processed_at"`
}

func (TransactionHistory) TableName() string {
	return "transaction_histories"
}
