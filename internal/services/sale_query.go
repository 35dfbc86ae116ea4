package services

import (
	"context"
	"errors"

	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/internal/store"
)

// List returns all sales with their display fields, newest first.
func (s *SaleService) List(ctx context.Context) ([]models.SaleSummary, error) {
	return s.store.ListSales(ctx)
}

// Get returns one sale with its payments and balance, or nil when the sale
// does not exist. Reads are not locked.
func (s *SaleService) Get(ctx context.Context, id uint) (*models.SaleDetail, error) {
	d, err := s.store.GetSaleDetail(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	d.SetPayments(payments)
	return d, nil
}
