// Package domain contains the append-only billing ledger models. Ledger rows
// are never updated after creation except for invoice status; corrections are
// new offsetting entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "open"
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusVoid InvoiceStatus = "void"
)

type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomeRefunded  PaymentOutcome = "refunded"
)

type CreditSource string

const (
	CreditSourceOverpayment CreditSource = "overpayment"
	CreditSourceProration   CreditSource = "proration"
	CreditSourceApplied     CreditSource = "applied"
	CreditSourceRefund      CreditSource = "refund"
)

// SubscriptionInvoice is generated at a period boundary. It is paid once the
// sum of matched successful payments covers Amount.
type SubscriptionInvoice struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	ShopID         snowflake.ID  `gorm:"not null;index"`
	SubscriptionID snowflake.ID  `gorm:"not null;index"`
	Amount         int64         `gorm:"not null"`
	Currency       string        `gorm:"type:text;not null"`
	Status         InvoiceStatus `gorm:"type:text;not null;index"`
	DueDate        time.Time     `gorm:"not null"`
	PeriodStart    time.Time     `gorm:"not null"`
	PeriodEnd      time.Time     `gorm:"not null"`
	CreatedAt      time.Time     `gorm:"not null"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (SubscriptionInvoice) TableName() string { return "subscription_invoices" }

// InvoiceLine is one priced line of an invoice. Credits appear as negative
// amounts.
type InvoiceLine struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	InvoiceID   snowflake.ID `gorm:"not null;index"`
	Description string       `gorm:"type:text;not null"`
	Amount      int64        `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "subscription_invoice_lines" }

// SubscriptionPayment is an immutable record of one resolved payment outcome.
// InvoiceID points at the first invoice the payment was applied to and stays
// nil when nothing was open to match.
type SubscriptionPayment struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	ShopID         snowflake.ID   `gorm:"not null;index"`
	SubscriptionID snowflake.ID   `gorm:"not null;index"`
	InvoiceID      *snowflake.ID  `gorm:"index"`
	Amount         int64          `gorm:"not null"`
	Currency       string         `gorm:"type:text;not null"`
	Outcome        PaymentOutcome `gorm:"type:text;not null"`
	Reference      string         `gorm:"type:text;not null;uniqueIndex:ux_subscription_payments_reference"`
	OccurredAt     time.Time      `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (SubscriptionPayment) TableName() string { return "subscription_payments" }

// PaymentApplication records how much of one payment settled one invoice. A
// payment can fan out across several invoices and an invoice can collect from
// several payments.
type PaymentApplication struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PaymentID snowflake.ID `gorm:"not null;index"`
	InvoiceID snowflake.ID `gorm:"not null;index"`
	Amount    int64        `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (PaymentApplication) TableName() string { return "payment_applications" }

// CreditEntry tracks credit balance movements. Positive amounts add credit,
// negative amounts consume it; the balance is the running sum.
type CreditEntry struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	ShopID         snowflake.ID `gorm:"not null;index"`
	SubscriptionID snowflake.ID `gorm:"not null;index"`
	Amount         int64        `gorm:"not null"`
	Source         CreditSource `gorm:"type:text;not null"`
	CreatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (CreditEntry) TableName() string { return "subscription_credit_entries" }
