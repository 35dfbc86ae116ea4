package services

import (
	"context"
	"errors"

	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleService owns the sale lifecycle and the vehicle status coupled to it.
//
// Every state change runs in one unit of work of the injected store: the row
// it depends on is locked first (the vehicle on create, the sale afterwards),
// preconditions are checked on the locked row and all writes commit together.
type SaleService struct {
	store store.Store
	log   *zap.Logger
}

// NewSaleService creates a SaleService. A nil logger discards logs.
func NewSaleService(st store.Store, log *zap.Logger) *SaleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SaleService{store: st, log: log.Named("sales")}
}

// CreateSaleInput carries a new sale. Client and user references are checked
// by the store's foreign keys only.
type CreateSaleInput struct {
	VehicleID uint
	ClientID  uint
	UserID    uint
	Price     decimal.Decimal
}

// Create reserves the vehicle and opens a sale in NEGOTIATION. The price is
// kept in cents, as stored.
func (s *SaleService) Create(ctx context.Context, in CreateSaleInput) (*models.Sale, error) {
	var sale *models.Sale
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		v, err := claimVehicle(tx, in.VehicleID)
		if err != nil {
			return err
		}
		if err := tx.SetVehicleStatus(v.ID, models.VehicleStatusReserved); err != nil {
			return err
		}
		sale = &models.Sale{
			VehicleID: v.ID,
			ClientID:  in.ClientID,
			UserID:    in.UserID,
			Status:    models.SaleStatusNegotiation,
			Price:     in.Price.Round(2),
		}
		return tx.CreateSale(sale)
	})
	if err != nil {
		s.logFailure("create", err, zap.Uint("vehicle_id", in.VehicleID), zap.Uint("client_id", in.ClientID))
		return nil, err
	}
	s.log.Info("sale created",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("vehicle_id", sale.VehicleID),
		zap.Uint("user_id", sale.UserID),
		zap.String("price", sale.Price.StringFixed(2)),
	)
	return sale, nil
}

// Conclude moves a sale in negotiation to CONCLUDED and its vehicle to SOLD.
func (s *SaleService) Conclude(ctx context.Context, id uint) error {
	return s.transition(ctx, "conclude", id, models.SaleStatusConcluded, func(st models.SaleStatus) error {
		if st == models.SaleStatusConcluded {
			return ErrSaleAlreadyConcluded
		}
		return ErrSaleCancelledImmutable
	})
}

// Cancel moves a sale in negotiation to CANCELLED and releases its vehicle.
func (s *SaleService) Cancel(ctx context.Context, id uint) error {
	return s.transition(ctx, "cancel", id, models.SaleStatusCancelled, func(st models.SaleStatus) error {
		if st == models.SaleStatusCancelled {
			return ErrSaleAlreadyCancelled
		}
		return ErrSaleConcludedImmutable
	})
}

// transition moves a sale out of NEGOTIATION. refused names the error for a
// sale already in a terminal status.
func (s *SaleService) transition(ctx context.Context, op string, id uint, to models.SaleStatus, refused func(models.SaleStatus) error) error {
	var vehicleID uint
	err := s.withLockedSale(ctx, id, func(tx store.Tx, sale *models.Sale) error {
		if sale.Status.Terminal() {
			return refused(sale.Status)
		}
		vehicleID = sale.VehicleID
		sale.Status = to
		if err := tx.UpdateSale(sale); err != nil {
			return err
		}
		return tx.SetVehicleStatus(sale.VehicleID, to.VehicleStatus())
	})
	if err != nil {
		s.logFailure(op, err, zap.Uint("sale_id", id))
		return err
	}
	s.log.Info("sale "+op,
		zap.Uint("sale_id", id),
		zap.Uint("vehicle_id", vehicleID),
		zap.String("status", string(to)),
		zap.String("vehicle_status", string(to.VehicleStatus())),
	)
	return nil
}

// AmendPrice replaces the agreed price of a sale still in negotiation.
func (s *SaleService) AmendPrice(ctx context.Context, id uint, price decimal.Decimal) (*models.Sale, error) {
	var updated *models.Sale
	err := s.withLockedSale(ctx, id, func(tx store.Tx, sale *models.Sale) error {
		if !sale.CanAmend() {
			return ErrSaleNotNegotiating
		}
		sale.Price = price.Round(2)
		if err := tx.UpdateSale(sale); err != nil {
			return err
		}
		updated = sale
		return nil
	})
	if err != nil {
		s.logFailure("amend", err, zap.Uint("sale_id", id))
		return nil, err
	}
	s.log.Info("sale amended", zap.Uint("sale_id", id), zap.String("price", updated.Price.StringFixed(2)))
	return updated, nil
}

// Delete removes a cancelled sale without payments. It reports false when
// the sale does not exist. The vehicle was already released by Cancel.
func (s *SaleService) Delete(ctx context.Context, id uint) (bool, error) {
	err := s.withLockedSale(ctx, id, func(tx store.Tx, sale *models.Sale) error {
		switch sale.Status {
		case models.SaleStatusConcluded:
			return ErrSaleConcludedUndeletable
		case models.SaleStatusCancelled:
		default:
			return ErrSaleMustBeCancelledFirst
		}
		n, err := tx.CountPayments(sale.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSaleHasPayments
		}
		return tx.DeleteSale(sale.ID)
	})
	if errors.Is(err, ErrSaleNotFound) {
		return false, nil
	}
	if err != nil {
		s.logFailure("delete", err, zap.Uint("sale_id", id))
		return false, err
	}
	s.log.Info("sale deleted", zap.Uint("sale_id", id))
	return true, nil
}

// withLockedSale runs fn in a unit of work holding the sale row lock.
func (s *SaleService) withLockedSale(ctx context.Context, id uint, fn func(tx store.Tx, sale *models.Sale) error) error {
	return s.store.InTx(ctx, func(tx store.Tx) error {
		sale, err := tx.LockSale(id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSaleNotFound
		}
		if err != nil {
			return err
		}
		return fn(tx, sale)
	})
}

func (s *SaleService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op))
	var se *Error
	if errors.As(err, &se) {
		s.log.Warn("sale precondition failed", append(fields, zap.String("code", se.Code))...)
		return
	}
	s.log.Error("sale store failure", append(fields, zap.Error(err))...)
}
