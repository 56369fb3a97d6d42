package domain

import (
	"context"
	"errors"
	"time"

	ledgerdomain "github.com/veloretail/velo/internal/ledger/domain"
)

// PaymentInput is an already-resolved payment outcome handed to the core by
// the gateway integration.
type PaymentInput struct {
	Amount     int64
	Currency   string
	Outcome    ledgerdomain.PaymentOutcome
	Reference  string
	OccurredAt time.Time
}

type CreateRequest struct {
	PlanCode       string
	InitialPayment *PaymentInput
	ActorID        *string
}

type ChangePlanRequest struct {
	PlanCode string
	ActorID  *string
}

// Service manages the shop's subscription lifecycle. The subscription and its
// ledger form one aggregate: every mutation runs in a single transaction with
// an optimistic version check, retried a bounded number of times before
// ErrConcurrencyConflict surfaces.
type Service interface {
	// Create signs the shop up. With a trial the subscription starts trialing;
	// without one an immediate successful payment covering the first invoice
	// is required or the call fails with ErrPaymentRequired.
	Create(ctx context.Context, req CreateRequest) (*Subscription, error)
	Get(ctx context.Context) (*Subscription, error)
	// CurrentState derives the state at the current instant, so transitions
	// that are due but not yet swept are already visible.
	CurrentState(ctx context.Context) (State, error)
	// ChangePlan swaps the plan immediately. Unused value of the current paid
	// period becomes proration credit. Downgrades that violate the new plan's
	// limits fail with ErrLimitExceeded and change nothing.
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*Subscription, error)
	Cancel(ctx context.Context, actorID *string) error
	// RecordPayment appends the outcome to the ledger and advances the state
	// machine when the payment settles everything open. Replaying a reference
	// already recorded returns the original row and changes nothing.
	RecordPayment(ctx context.Context, input PaymentInput) (*ledgerdomain.SubscriptionPayment, error)

	// Sweeps are run by the scheduler and are safe to run redundantly or
	// late: each re-evaluates from timestamps and ledger contents. They
	// return how many subscriptions were transitioned.
	SweepTrialEnds(ctx context.Context, now time.Time, limit int) (int, error)
	SweepPeriodEnds(ctx context.Context, now time.Time, limit int) (int, error)
	SweepGraceExpiry(ctx context.Context, now time.Time, limit int) (int, error)
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrAlreadySubscribed    = errors.New("already_subscribed")
	ErrPaymentRequired      = errors.New("payment_required")
	ErrLimitExceeded        = errors.New("limit_exceeded")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrConcurrencyConflict  = errors.New("concurrency_conflict")
)
