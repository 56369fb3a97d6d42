package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/config"
	ledgerdomain "github.com/veloretail/velo/internal/ledger/domain"
	"github.com/veloretail/velo/pkg/db"
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
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing config.BillingConfig
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
	}
}

func (s *Service) RecordPayment(ctx context.Context, tx *gorm.DB, req ledgerdomain.RecordPaymentRequest) (*ledgerdomain.SubscriptionPayment, *ledgerdomain.SettlementResult, error) {
	if req.ShopID == 0 || req.SubscriptionID == 0 || req.Amount <= 0 {
		return nil, nil, ledgerdomain.ErrInvalidPayment
	}
	switch req.Outcome {
	case ledgerdomain.OutcomeSucceeded, ledgerdomain.OutcomeFailed, ledgerdomain.OutcomeRefunded:
	default:
		return nil, nil, ledgerdomain.ErrInvalidPayment
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	} else {
		// Checked up front so a replayed reference is caught before any write
		// poisons the enclosing transaction. The unique index backstops races.
		var count int64
		if err := tx.WithContext(ctx).Model(&ledgerdomain.SubscriptionPayment{}).
			Where("reference = ?", reference).
			Count(&count).Error; err != nil {
			return nil, nil, err
		}
		if count > 0 {
			return nil, nil, ledgerdomain.ErrDuplicateReference
		}
	}
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.clock.Now()
	}

	payment := ledgerdomain.SubscriptionPayment{
		ID:             s.genID.Generate(),
		ShopID:         req.ShopID,
		SubscriptionID: req.SubscriptionID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Outcome:        req.Outcome,
		Reference:      reference,
		OccurredAt:     occurredAt,
		CreatedAt:      s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, nil, ledgerdomain.ErrDuplicateReference
		}
		return nil, nil, err
	}

	result := &ledgerdomain.SettlementResult{}
	if payment.Outcome == ledgerdomain.OutcomeRefunded {
		// Invoices stay untouched; the refund claws the amount back from the
		// credit balance as an offsetting movement.
		if err := s.AddCredit(ctx, tx, payment.ShopID, payment.SubscriptionID, -payment.Amount, ledgerdomain.CreditSourceRefund); err != nil {
			return nil, nil, err
		}
		return &payment, result, nil
	}
	if payment.Outcome != ledgerdomain.OutcomeSucceeded {
		return &payment, result, nil
	}

	if err := s.settle(ctx, tx, &payment, result); err != nil {
		return nil, nil, err
	}

	var open int64
	if err := tx.WithContext(ctx).Model(&ledgerdomain.SubscriptionInvoice{}).
		Where("subscription_id = ? AND status = ?", payment.SubscriptionID, ledgerdomain.InvoiceStatusOpen).
		Count(&open).Error; err != nil {
		return nil, nil, err
	}
	result.OpenRemaining = open
	return &payment, result, nil
}

// settle spreads a successful payment across open invoices, oldest first. The
// remainder, if any, either tops up the last touched invoice when it is within
// the rounding tolerance or becomes a credit entry.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, payment *ledgerdomain.SubscriptionPayment, result *ledgerdomain.SettlementResult) error {
	invoices, err := s.OpenInvoices(ctx, tx, payment.SubscriptionID)
	if err != nil {
		return err
	}

	remaining := payment.Amount
	var lastTouched *ledgerdomain.SubscriptionInvoice
	for i := range invoices {
		if remaining <= 0 {
			break
		}
		inv := &invoices[i]

		applied, err := s.appliedTotal(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		due := inv.Amount - applied
		if due <= 0 {
			continue
		}

		chunk := remaining
		if chunk > due {
			chunk = due
		}
		if err := s.apply(ctx, tx, payment, inv, chunk); err != nil {
			return err
		}
		remaining -= chunk
		result.Applied += chunk
		lastTouched = inv

		if applied+chunk >= inv.Amount {
			if err := s.markPaid(ctx, tx, inv); err != nil {
				return err
			}
			result.PaidInvoiceIDs = append(result.PaidInvoiceIDs, inv.ID)
		}
	}

	if remaining <= 0 {
		return nil
	}
	if lastTouched != nil && remaining <= s.billing.RoundingTolerance {
		if err := s.apply(ctx, tx, payment, lastTouched, remaining); err != nil {
			return err
		}
		result.Applied += remaining
		return nil
	}

	if err := s.AddCredit(ctx, tx, payment.ShopID, payment.SubscriptionID, remaining, ledgerdomain.CreditSourceOverpayment); err != nil {
		return err
	}
	result.Credited = remaining
	return nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, payment *ledgerdomain.SubscriptionPayment, inv *ledgerdomain.SubscriptionInvoice, amount int64) error {
	app := ledgerdomain.PaymentApplication{
		ID:        s.genID.Generate(),
		PaymentID: payment.ID,
		InvoiceID: inv.ID,
		Amount:    amount,
		CreatedAt: s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(&app).Error; err != nil {
		return err
	}
	if payment.InvoiceID == nil {
		payment.InvoiceID = &inv.ID
		return tx.WithContext(ctx).Model(&ledgerdomain.SubscriptionPayment{}).
			Where("id = ?", payment.ID).
			Update("invoice_id", inv.ID).Error
	}
	return nil
}

func (s *Service) markPaid(ctx context.Context, tx *gorm.DB, inv *ledgerdomain.SubscriptionInvoice) error {
	inv.Status = ledgerdomain.InvoiceStatusPaid
	return tx.WithContext(ctx).Model(&ledgerdomain.SubscriptionInvoice{}).
		Where("id = ?", inv.ID).
		Update("status", ledgerdomain.InvoiceStatusPaid).Error
}

func (s *Service) appliedTotal(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).Model(&ledgerdomain.PaymentApplication{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) GenerateInvoice(ctx context.Context, tx *gorm.DB, req ledgerdomain.GenerateInvoiceRequest) (*ledgerdomain.SubscriptionInvoice, error) {
	if req.ShopID == 0 || req.SubscriptionID == 0 || len(req.Lines) == 0 {
		return nil, ledgerdomain.ErrInvalidInvoice
	}

	var total int64
	for _, line := range req.Lines {
		total += line.Amount
	}
	if total < 0 {
		return nil, ledgerdomain.ErrInvalidInvoice
	}

	now := s.clock.Now()
	invoice := ledgerdomain.SubscriptionInvoice{
		ID:             s.genID.Generate(),
		ShopID:         req.ShopID,
		SubscriptionID: req.SubscriptionID,
		Currency:       req.Currency,
		Status:         ledgerdomain.InvoiceStatusOpen,
		DueDate:        req.DueDate,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		CreatedAt:      now,
	}

	lines := make([]ledgerdomain.InvoiceLine, 0, len(req.Lines)+1)
	for _, line := range req.Lines {
		lines = append(lines, ledgerdomain.InvoiceLine{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			Description: line.Description,
			Amount:      line.Amount,
			CreatedAt:   now,
		})
	}

	balance, err := s.CreditBalance(ctx, tx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if balance > 0 && total > 0 {
		use := balance
		if use > total {
			use = total
		}
		lines = append(lines, ledgerdomain.InvoiceLine{
			ID:          s.genID.Generate(),
			InvoiceID:   invoice.ID,
			Description: "credit applied",
			Amount:      -use,
			CreatedAt:   now,
		})
		total -= use
		if err := s.AddCredit(ctx, tx, req.ShopID, req.SubscriptionID, -use, ledgerdomain.CreditSourceApplied); err != nil {
			return nil, err
		}
	}

	invoice.Amount = total
	if total == 0 {
		invoice.Status = ledgerdomain.InvoiceStatusPaid
	}

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	for i := range lines {
		if err := tx.WithContext(ctx).Create(&lines[i]).Error; err != nil {
			return nil, err
		}
	}
	invoice.Lines = lines
	return &invoice, nil
}

func (s *Service) AddCredit(ctx context.Context, tx *gorm.DB, shopID, subscriptionID snowflake.ID, amount int64, source ledgerdomain.CreditSource) error {
	if amount == 0 {
		return nil
	}
	entry := ledgerdomain.CreditEntry{
		ID:             s.genID.Generate(),
		ShopID:         shopID,
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Source:         source,
		CreatedAt:      s.clock.Now(),
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

func (s *Service) CreditBalance(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) (int64, error) {
	var balance int64
	err := tx.WithContext(ctx).Model(&ledgerdomain.CreditEntry{}).
		Where("subscription_id = ?", subscriptionID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance).Error
	return balance, err
}

func (s *Service) OpenInvoices(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) ([]ledgerdomain.SubscriptionInvoice, error) {
	var invoices []ledgerdomain.SubscriptionInvoice
	err := tx.WithContext(ctx).
		Where("subscription_id = ? AND status = ?", subscriptionID, ledgerdomain.InvoiceStatusOpen).
		Order("created_at, id").
		Find(&invoices).Error
	return invoices, err
}

func (s *Service) ListInvoices(ctx context.Context, req ledgerdomain.ListInvoiceRequest) ([]ledgerdomain.SubscriptionInvoice, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	stmt := s.db.WithContext(ctx).Preload("Lines").
		Where("subscription_id = ?", req.SubscriptionID)
	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}

	var invoices []ledgerdomain.SubscriptionInvoice
	err := stmt.Order("created_at desc").Limit(limit).Offset(req.Offset).Find(&invoices).Error
	return invoices, err
}

func (s *Service) ListPayments(ctx context.Context, req ledgerdomain.ListPaymentRequest) ([]ledgerdomain.SubscriptionPayment, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var payments []ledgerdomain.SubscriptionPayment
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", req.SubscriptionID).
		Order("occurred_at desc").Limit(limit).Offset(req.Offset).
		Find(&payments).Error
	return payments, err
}

func (s *Service) ListCredits(ctx context.Context, req ledgerdomain.ListCreditRequest) ([]ledgerdomain.CreditEntry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var entries []ledgerdomain.CreditEntry
	err := s.db.WithContext(ctx).
		Where("subscription_id = ?", req.SubscriptionID).
		Order("created_at desc, id desc").Limit(limit).Offset(req.Offset).
		Find(&entries).Error
	return entries, err
}
