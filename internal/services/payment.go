package services

import (
	"context"
	"time"

	"github.com/diewo77/dealership-api/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddPaymentInput carries a payment to append to a sale's ledger.
type AddPaymentInput struct {
	SaleID uint
	Method string
	Amount decimal.Decimal
	PaidAt *time.Time
}

// AddPayment appends a payment. Payments are accepted in any sale status and
// the sale is neither checked nor locked; a missing sale surfaces as a store
// constraint violation.
func (s *SaleService) AddPayment(ctx context.Context, in AddPaymentInput) (*models.Payment, error) {
	p := &models.Payment{
		SaleID: in.SaleID,
		Method: in.Method,
		Amount: in.Amount.Round(2),
		PaidAt: in.PaidAt,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		s.logFailure("pay", err, zap.Uint("sale_id", in.SaleID))
		return nil, err
	}
	s.log.Info("payment recorded",
		zap.Uint("payment_id", p.ID),
		zap.Uint("sale_id", p.SaleID),
		zap.String("method", p.Method),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return p, nil
}
