package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/veloretail/velo/internal/audit/domain"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/config"
	ledgerdomain "github.com/veloretail/velo/internal/ledger/domain"
	notifydomain "github.com/veloretail/velo/internal/notify/domain"
	plandomain "github.com/veloretail/velo/internal/plan/domain"
	shopdomain "github.com/veloretail/velo/internal/shop/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	subscriptiondomain "github.com/veloretail/velo/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	billing config.BillingConfig
	ledger  ledgerdomain.Service
	plans   plandomain.Service
	shops   shopdomain.Service
	notify  notifydomain.Publisher
	audit   auditdomain.Service
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing config.BillingConfig
	Ledger  ledgerdomain.Service
	Plans   plandomain.Service
	Shops   shopdomain.Service
	Notify  notifydomain.Publisher
	Audit   auditdomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
		ledger:  p.Ledger,
		plans:   p.Plans,
		shops:   p.Shops,
		notify:  p.Notify,
		audit:   p.Audit,
	}
}

func (s *Service) grace() time.Duration {
	return time.Duration(s.billing.GraceDays) * 24 * time.Hour
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (*subscriptiondomain.Subscription, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, shopdomain.ErrInvalidShop
	}

	plan, err := s.plans.GetByCode(ctx, req.PlanCode)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sub := &subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		ShopID:    shopID,
		PlanID:    plan.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&subscriptiondomain.Subscription{}).
			Where("shop_id = ?", shopID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return subscriptiondomain.ErrAlreadySubscribed
		}

		if plan.TrialDays > 0 {
			trialEnd := now.AddDate(0, 0, plan.TrialDays)
			sub.State = subscriptiondomain.StateTrialing
			sub.TrialEnd = &trialEnd
			sub.CurrentPeriodStart = now
			sub.CurrentPeriodEnd = trialEnd
			return tx.Create(sub).Error
		}

		sub.State = subscriptiondomain.StateActive
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = plan.PeriodEnd(now)
		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		invoice, err := s.ledger.GenerateInvoice(ctx, tx, ledgerdomain.GenerateInvoiceRequest{
			ShopID:         shopID,
			SubscriptionID: sub.ID,
			Currency:       plan.Currency,
			PeriodStart:    sub.CurrentPeriodStart,
			PeriodEnd:      sub.CurrentPeriodEnd,
			DueDate:        now,
			Lines: []ledgerdomain.LineSpec{
				{Description: plan.Name, Amount: plan.PriceAmount},
			},
		})
		if err != nil {
			return err
		}
		if invoice.Status == ledgerdomain.InvoiceStatusPaid {
			return nil
		}

		payment := req.InitialPayment
		if payment == nil || payment.Outcome != ledgerdomain.OutcomeSucceeded {
			return subscriptiondomain.ErrPaymentRequired
		}
		_, result, err := s.ledger.RecordPayment(ctx, tx, s.paymentRequest(shopID, sub.ID, plan.Currency, *payment))
		if err != nil {
			return err
		}
		if result.OpenRemaining > 0 {
			return subscriptiondomain.ErrPaymentRequired
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, shopID, req.ActorID, "subscription.created", sub.ID, map[string]any{
		"plan":  plan.Code,
		"state": string(sub.State),
	})
	s.publish(ctx, sub, sub.State, "Subscription started",
		fmt.Sprintf("Your %s subscription is %s.", plan.Name, sub.State))
	return sub, nil
}

func (s *Service) Get(ctx context.Context) (*subscriptiondomain.Subscription, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, shopdomain.ErrInvalidShop
	}
	return s.findByShop(ctx, s.db.WithContext(ctx), shopID)
}

func (s *Service) CurrentState(ctx context.Context) (subscriptiondomain.State, error) {
	sub, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return subscriptiondomain.EffectiveState(sub, s.clock.Now(), s.grace()), nil
}

func (s *Service) ChangePlan(ctx context.Context, req subscriptiondomain.ChangePlanRequest) (*subscriptiondomain.Subscription, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, shopdomain.ErrInvalidShop
	}

	next, err := s.plans.GetByCode(ctx, req.PlanCode)
	if err != nil {
		return nil, err
	}
	if err := s.checkLimits(ctx, next); err != nil {
		return nil, err
	}

	var sub *subscriptiondomain.Subscription
	var previous *plandomain.Plan
	err = s.withConflictRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			loaded, err := s.findByShop(ctx, tx, shopID)
			if err != nil {
				return err
			}
			sub = loaded

			switch sub.State {
			case subscriptiondomain.StateActive, subscriptiondomain.StateTrialing:
			default:
				return subscriptiondomain.ErrInvalidTransition
			}
			if sub.PlanID == next.ID {
				return nil
			}

			previous, err = s.plans.Get(ctx, sub.PlanID)
			if err != nil {
				return err
			}

			// Unused paid time becomes credit. Trials have no paid value.
			if sub.State == subscriptiondomain.StateActive {
				credit := prorate(previous.PriceAmount, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
					s.clock.Now(), s.billing.ProrationRounding)
				if credit > 0 {
					if err := s.ledger.AddCredit(ctx, tx, shopID, sub.ID, credit, ledgerdomain.CreditSourceProration); err != nil {
						return err
					}
				}
			}

			if err := s.persist(tx, sub, map[string]any{"plan_id": next.ID}); err != nil {
				return err
			}
			sub.PlanID = next.ID
			sub.Version++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if previous != nil {
		s.recordAudit(ctx, shopID, req.ActorID, "subscription.plan_changed", sub.ID, map[string]any{
			"from": previous.Code,
			"to":   next.Code,
		})
		s.publish(ctx, sub, sub.State, "Plan changed",
			fmt.Sprintf("Your plan is now %s.", next.Name))
	}
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return shopdomain.ErrInvalidShop
	}

	var sub *subscriptiondomain.Subscription
	changed := false
	err := s.withConflictRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			loaded, err := s.findByShop(ctx, tx, shopID)
			if err != nil {
				return err
			}
			sub = loaded

			next, didChange, err := subscriptiondomain.Apply(sub.State, subscriptiondomain.EventCancelRequested)
			if err != nil {
				return err
			}
			if !didChange {
				changed = false
				return nil
			}

			now := s.clock.Now()
			if err := s.persist(tx, sub, map[string]any{
				"state":        next,
				"cancelled_at": now,
			}); err != nil {
				return err
			}
			sub.State = next
			sub.CancelledAt = &now
			sub.Version++
			changed = true
			return nil
		})
	})
	if err != nil {
		return err
	}

	if changed {
		s.recordAudit(ctx, shopID, actorID, "subscription.cancelled", sub.ID, nil)
		s.publish(ctx, sub, sub.State, "Subscription cancelled",
			"Your subscription has been cancelled.")
	}
	return nil
}

func (s *Service) RecordPayment(ctx context.Context, input subscriptiondomain.PaymentInput) (*ledgerdomain.SubscriptionPayment, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, shopdomain.ErrInvalidShop
	}

	var payment *ledgerdomain.SubscriptionPayment
	var transitioned *subscriptiondomain.Subscription
	var planName string

	err := s.withConflictRetry(func() error {
		transitioned = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sub, err := s.findByShop(ctx, tx, shopID)
			if err != nil {
				return err
			}
			if sub.State == subscriptiondomain.StateCancelled {
				return subscriptiondomain.ErrInvalidTransition
			}

			plan, err := s.plans.Get(ctx, sub.PlanID)
			if err != nil {
				return err
			}
			planName = plan.Name

			recorded, result, err := s.ledger.RecordPayment(ctx, tx, s.paymentRequest(shopID, sub.ID, plan.Currency, input))
			if err != nil {
				return err
			}
			payment = recorded

			if recorded.Outcome != ledgerdomain.OutcomeSucceeded || result.Applied == 0 || result.OpenRemaining > 0 {
				return nil
			}

			next, changed, err := subscriptiondomain.Apply(sub.State, subscriptiondomain.EventPaymentSettled)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}

			updates := map[string]any{"state": next, "grace_until": nil}
			if sub.State == subscriptiondomain.StateSuspended {
				// Reactivation starts a fresh period at the payment date.
				start := recorded.OccurredAt
				updates["current_period_start"] = start
				updates["current_period_end"] = plan.PeriodEnd(start)
				sub.CurrentPeriodStart = start
				sub.CurrentPeriodEnd = plan.PeriodEnd(start)
			}
			if err := s.persist(tx, sub, updates); err != nil {
				return err
			}
			sub.State = next
			sub.GraceUntil = nil
			sub.Version++
			transitioned = sub
			return nil
		})
	})
	if errors.Is(err, ledgerdomain.ErrDuplicateReference) {
		return s.paymentByReference(ctx, input.Reference)
	}
	if err != nil {
		return nil, err
	}

	if transitioned != nil {
		s.recordAudit(ctx, shopID, nil, "subscription.activated", transitioned.ID, map[string]any{
			"payment_reference": payment.Reference,
		})
		s.publish(ctx, transitioned, transitioned.State, "Subscription active",
			fmt.Sprintf("Your %s subscription is active.", planName))
	}
	return payment, nil
}

// SweepTrialEnds moves expired trials forward: the first period invoice is
// generated and, unless credit already covers it, the subscription goes past
// due with a grace deadline.
func (s *Service) SweepTrialEnds(ctx context.Context, now time.Time, limit int) (int, error) {
	var due []subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).
		Where("state = ? AND trial_end <= ?", subscriptiondomain.StateTrialing, now).
		Limit(s.sweepLimit(limit)).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	transitions := 0
	for i := range due {
		moved, err := s.billPeriod(ctx, due[i].ID, subscriptiondomain.StateTrialing, subscriptiondomain.EventTrialEnded, now)
		if err != nil {
			s.log.Error("trial sweep failed",
				zap.String("subscription_id", due[i].ID.String()), zap.Error(err))
			continue
		}
		if moved {
			transitions++
		}
	}
	return transitions, nil
}

// SweepPeriodEnds renews active subscriptions whose period has lapsed.
func (s *Service) SweepPeriodEnds(ctx context.Context, now time.Time, limit int) (int, error) {
	var due []subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).
		Where("state = ? AND current_period_end <= ?", subscriptiondomain.StateActive, now).
		Limit(s.sweepLimit(limit)).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	transitions := 0
	for i := range due {
		moved, err := s.billPeriod(ctx, due[i].ID, subscriptiondomain.StateActive, subscriptiondomain.EventPeriodEnded, now)
		if err != nil {
			s.log.Error("renewal sweep failed",
				zap.String("subscription_id", due[i].ID.String()), zap.Error(err))
			continue
		}
		if moved {
			transitions++
		}
	}
	return transitions, nil
}

// SweepGraceExpiry suspends past-due subscriptions whose grace window lapsed.
func (s *Service) SweepGraceExpiry(ctx context.Context, now time.Time, limit int) (int, error) {
	var due []subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).
		Where("state = ? AND grace_until <= ?", subscriptiondomain.StatePastDue, now).
		Limit(s.sweepLimit(limit)).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	transitions := 0
	for i := range due {
		id := due[i].ID
		var suspended *subscriptiondomain.Subscription
		err := s.withConflictRetry(func() error {
			suspended = nil
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				sub, err := s.findByID(ctx, tx, id)
				if err != nil {
					return err
				}
				if sub.State != subscriptiondomain.StatePastDue ||
					sub.GraceUntil == nil || sub.GraceUntil.After(now) {
					return nil
				}

				next, changed, err := subscriptiondomain.Apply(sub.State, subscriptiondomain.EventGraceExpired)
				if err != nil || !changed {
					return err
				}
				if err := s.persist(tx, sub, map[string]any{"state": next}); err != nil {
					return err
				}
				sub.State = next
				sub.Version++
				suspended = sub
				return nil
			})
		})
		if err != nil {
			s.log.Error("grace sweep failed",
				zap.String("subscription_id", id.String()), zap.Error(err))
			continue
		}
		if suspended != nil {
			transitions++
			s.publish(ctx, suspended, suspended.State, "Subscription suspended",
				"Payment was not received in time. Service is suspended until the balance is settled.")
			s.recordAudit(ctx, suspended.ShopID, nil, "subscription.suspended", suspended.ID, nil)
		}
	}
	return transitions, nil
}

// billPeriod closes out the period that just ended for one subscription: it
// generates the next invoice once, settles it from credit when possible, and
// otherwise applies the given lapse event. Reruns are harmless because state
// and invoice presence are re-read from the store.
func (s *Service) billPeriod(ctx context.Context, id snowflake.ID, expect subscriptiondomain.State, lapse subscriptiondomain.Event, now time.Time) (bool, error) {
	moved := false
	var outcome *subscriptiondomain.Subscription
	var planName, auditAction string
	var auditMeta map[string]any

	err := s.withConflictRetry(func() error {
		moved = false
		outcome = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sub, err := s.findByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if sub.State != expect {
				return nil
			}

			periodStart := sub.CurrentPeriodEnd
			if expect == subscriptiondomain.StateTrialing {
				if sub.TrialEnd == nil || sub.TrialEnd.After(now) {
					return nil
				}
				periodStart = *sub.TrialEnd
			} else if sub.CurrentPeriodEnd.After(now) {
				return nil
			}

			plan, err := s.plans.Get(ctx, sub.PlanID)
			if err != nil {
				return err
			}
			periodEnd := plan.PeriodEnd(periodStart)

			invoice, err := s.invoiceForPeriod(ctx, tx, sub, plan, periodStart, periodEnd)
			if err != nil {
				return err
			}

			if invoice.Status == ledgerdomain.InvoiceStatusPaid {
				next, changed, err := subscriptiondomain.Apply(sub.State, subscriptiondomain.EventPaymentSettled)
				if err != nil {
					return err
				}
				updates := map[string]any{
					"current_period_start": periodStart,
					"current_period_end":   periodEnd,
					"grace_until":          nil,
				}
				if changed {
					updates["state"] = next
				}
				if err := s.persist(tx, sub, updates); err != nil {
					return err
				}
				sub.State = next
				sub.CurrentPeriodStart = periodStart
				sub.CurrentPeriodEnd = periodEnd
				sub.Version++
				moved = true
				outcome = sub
				planName = plan.Name
				auditAction = "subscription.renewed"
				auditMeta = nil
				return nil
			}

			next, changed, err := subscriptiondomain.Apply(sub.State, lapse)
			if err != nil || !changed {
				return err
			}
			graceUntil := periodStart.Add(s.grace())
			if err := s.persist(tx, sub, map[string]any{
				"state":                next,
				"current_period_start": periodStart,
				"current_period_end":   periodEnd,
				"grace_until":          graceUntil,
			}); err != nil {
				return err
			}
			sub.State = next
			sub.CurrentPeriodStart = periodStart
			sub.CurrentPeriodEnd = periodEnd
			sub.GraceUntil = &graceUntil
			sub.Version++
			moved = true
			outcome = sub
			planName = plan.Name
			auditAction = "subscription.past_due"
			auditMeta = map[string]any{"invoice_id": invoice.ID.String()}
			return nil
		})
	})
	if err != nil || outcome == nil {
		return moved, err
	}

	if auditAction == "subscription.renewed" {
		s.publish(ctx, outcome, outcome.State, "Subscription renewed",
			fmt.Sprintf("Your %s subscription was renewed from credit.", planName))
	} else {
		s.publish(ctx, outcome, outcome.State, "Payment due",
			fmt.Sprintf("Your %s subscription is past due. Please settle the open invoice.", planName))
	}
	s.recordAudit(ctx, outcome.ShopID, nil, auditAction, outcome.ID, auditMeta)
	return moved, err
}

// invoiceForPeriod returns the invoice covering the period, generating it on
// first need. The lookup keeps a crashed or doubled sweep from billing twice.
func (s *Service) invoiceForPeriod(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, plan *plandomain.Plan, periodStart, periodEnd time.Time) (*ledgerdomain.SubscriptionInvoice, error) {
	var existing ledgerdomain.SubscriptionInvoice
	err := tx.WithContext(ctx).
		Where("subscription_id = ? AND period_start = ?", sub.ID, periodStart).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s.ledger.GenerateInvoice(ctx, tx, ledgerdomain.GenerateInvoiceRequest{
		ShopID:         sub.ShopID,
		SubscriptionID: sub.ID,
		Currency:       plan.Currency,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		DueDate:        periodStart,
		Lines: []ledgerdomain.LineSpec{
			{Description: plan.Name, Amount: plan.PriceAmount},
		},
	})
}

func (s *Service) checkLimits(ctx context.Context, plan *plandomain.Plan) error {
	if max, ok := plan.Limit(plandomain.LimitMaxBranches); ok {
		count, err := s.shops.CountBranches(ctx)
		if err != nil {
			return err
		}
		if count > max {
			return subscriptiondomain.ErrLimitExceeded
		}
	}
	if max, ok := plan.Limit(plandomain.LimitMaxUsers); ok {
		count, err := s.shops.CountUsers(ctx)
		if err != nil {
			return err
		}
		if count > max {
			return subscriptiondomain.ErrLimitExceeded
		}
	}
	return nil
}

func (s *Service) paymentRequest(shopID, subscriptionID snowflake.ID, currency string, input subscriptiondomain.PaymentInput) ledgerdomain.RecordPaymentRequest {
	if input.Currency == "" {
		input.Currency = currency
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = s.clock.Now()
	}
	return ledgerdomain.RecordPaymentRequest{
		ShopID:         shopID,
		SubscriptionID: subscriptionID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Outcome:        input.Outcome,
		Reference:      input.Reference,
		OccurredAt:     input.OccurredAt,
	}
}

func (s *Service) paymentByReference(ctx context.Context, reference string) (*ledgerdomain.SubscriptionPayment, error) {
	var payment ledgerdomain.SubscriptionPayment
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Service) findByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	if err := tx.WithContext(ctx).Where("shop_id = ?", shopID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriptiondomain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) findByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriptiondomain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// persist writes the updates guarded by the version read in this transaction.
// Zero rows affected means a concurrent writer won; the caller's retry loop
// re-reads and reapplies.
func (s *Service) persist(tx *gorm.DB, sub *subscriptiondomain.Subscription, updates map[string]any) error {
	updates["version"] = sub.Version + 1
	updates["updated_at"] = s.clock.Now()
	res := tx.Model(&subscriptiondomain.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return subscriptiondomain.ErrConcurrencyConflict
	}
	return nil
}

func (s *Service) withConflictRetry(fn func() error) error {
	retries := s.billing.ConflictRetries
	if retries <= 0 {
		retries = 1
	}
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		err = fn()
		if !errors.Is(err, subscriptiondomain.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

// publish surfaces one notification per state transition. The dedup key is
// derived from the subscription, the state entered, the notification title and
// the period anchor, so a replayed event cannot produce a second row while
// distinct events landing in the same state and period still each get one.
func (s *Service) publish(ctx context.Context, sub *subscriptiondomain.Subscription, state subscriptiondomain.State, title, message string) {
	raw := fmt.Sprintf("subscription:%s:%s:%s:%d", sub.ID, state, title, sub.CurrentPeriodStart.Unix())
	key := uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw)).String()

	severity := notifydomain.SeverityInfo
	switch state {
	case subscriptiondomain.StateActive:
		severity = notifydomain.SeveritySuccess
	case subscriptiondomain.StatePastDue:
		severity = notifydomain.SeverityWarning
	case subscriptiondomain.StateSuspended:
		severity = notifydomain.SeverityError
	}

	n := &notifydomain.Notification{
		ShopID:   sub.ShopID,
		Title:    title,
		Message:  message,
		Severity: severity,
		DedupKey: key,
	}
	if err := s.notify.Publish(ctx, n); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("subscription_id", sub.ID.String()), zap.Error(err))
	}
}

func (s *Service) recordAudit(ctx context.Context, shopID snowflake.ID, actorID *string, action string, subscriptionID snowflake.ID, metadata map[string]any) {
	actorType := auditdomain.ActorTypeUser
	if actorID == nil {
		actorType = auditdomain.ActorTypeSystem
	}
	if err := s.audit.AuditLog(ctx, shopID, actorType, actorID, action, "subscription", subscriptionID.String(), metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) sweepLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
