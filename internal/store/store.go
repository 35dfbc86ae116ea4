// Package store is the persistence boundary of the sale core.
//
// A Store runs units of work (InTx) whose Tx exposes exclusive row locks and
// the writes the sale lifecycle needs. Two implementations exist: Gorm over a
// relational database and Memory, an in-process fake used by tests.
package store

import (
	"context"
	"errors"

	"github.com/diewo77/dealership-api/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrConstraint wraps unique and foreign key violations.
	ErrConstraint = errors.New("store: constraint violation")
)

// Store is the capability injected into the sale services.
type Store interface {
	// InTx runs fn inside one atomic unit of work bound to ctx. The work is
	// committed when fn returns nil and rolled back otherwise; fn's error is
	// returned unchanged. Row locks taken through tx are held until InTx returns.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// CreatePayment inserts a payment outside of any sale lock.
	CreatePayment(ctx context.Context, p *models.Payment) error

	// ListSales returns every sale joined with its display fields, newest first.
	ListSales(ctx context.Context) ([]models.SaleSummary, error)
	// GetSaleDetail returns one joined sale without payments, or ErrNotFound.
	GetSaleDetail(ctx context.Context, id uint) (*models.SaleDetail, error)
	// ListPayments returns a sale's payments by paid_at ascending, unset last.
	ListPayments(ctx context.Context, saleID uint) ([]models.Payment, error)
}

// Tx is a unit of work. It is bound to the context given to InTx and must not
// be used after InTx returns.
type Tx interface {
	// LockVehicle reads the vehicle row holding an exclusive lock on it.
	LockVehicle(id uint) (*models.Vehicle, error)
	// LockSale reads the sale row holding an exclusive lock on it.
	LockSale(id uint) (*models.Sale, error)

	SetVehicleStatus(id uint, status models.VehicleStatus) error
	CreateSale(s *models.Sale) error
	// UpdateSale persists the status and price of an existing sale.
	UpdateSale(s *models.Sale) error
	DeleteSale(id uint) error
	CountPayments(saleID uint) (int64, error)
}
