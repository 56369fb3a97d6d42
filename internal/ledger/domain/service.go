package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordPaymentRequest struct {
	ShopID         snowflake.ID
	SubscriptionID snowflake.ID
	Amount         int64
	Currency       string
	Outcome        PaymentOutcome
	Reference      string
	OccurredAt     time.Time
}

// SettlementResult summarises what a successful payment settled.
type SettlementResult struct {
	Applied        int64
	Credited       int64
	PaidInvoiceIDs []snowflake.ID
	// OpenRemaining counts invoices still open for the subscription after the
	// payment was applied.
	OpenRemaining int64
}

type LineSpec struct {
	Description string
	Amount      int64
}

type GenerateInvoiceRequest struct {
	ShopID         snowflake.ID
	SubscriptionID snowflake.ID
	Currency       string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	DueDate        time.Time
	Lines          []LineSpec
}

type ListInvoiceRequest struct {
	SubscriptionID snowflake.ID
	Status         InvoiceStatus
	Limit          int
	Offset         int
}

type ListPaymentRequest struct {
	SubscriptionID snowflake.ID
	Limit          int
	Offset         int
}

type ListCreditRequest struct {
	SubscriptionID snowflake.ID
	Limit          int
	Offset         int
}

// Service is the billing ledger. Mutating methods run inside a transaction
// handle supplied by the caller, so payment matching and the subscription
// state write commit or roll back together.
type Service interface {
	// RecordPayment appends the payment and, when it succeeded, applies the
	// funds oldest invoice first. Remainder within the rounding tolerance is
	// absorbed into the last touched invoice; anything larger becomes credit.
	// A refunded payment leaves invoices alone and writes an offsetting credit
	// movement instead.
	RecordPayment(ctx context.Context, tx *gorm.DB, req RecordPaymentRequest) (*SubscriptionPayment, *SettlementResult, error)
	// GenerateInvoice creates an invoice from the given lines, automatically
	// applying any available credit balance as a negative line. An invoice
	// fully covered by credit is created already paid.
	GenerateInvoice(ctx context.Context, tx *gorm.DB, req GenerateInvoiceRequest) (*SubscriptionInvoice, error)
	// AddCredit appends a credit movement, for example a proration credit on
	// plan change.
	AddCredit(ctx context.Context, tx *gorm.DB, shopID, subscriptionID snowflake.ID, amount int64, source CreditSource) error
	CreditBalance(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) (int64, error)
	OpenInvoices(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) ([]SubscriptionInvoice, error)

	ListInvoices(ctx context.Context, req ListInvoiceRequest) ([]SubscriptionInvoice, error)
	ListPayments(ctx context.Context, req ListPaymentRequest) ([]SubscriptionPayment, error)
	ListCredits(ctx context.Context, req ListCreditRequest) ([]CreditEntry, error)
}

var (
	ErrInvalidPayment     = errors.New("invalid_payment")
	ErrInvalidInvoice     = errors.New("invalid_invoice")
	ErrDuplicateReference = errors.New("duplicate_payment_reference")
)
