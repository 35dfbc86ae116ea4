package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/dealership-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the relational Store. Row locks are SELECT ... FOR UPDATE, which
// dialects without row locking (sqlite) drop from the statement.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an opened database. The connection should be opened with
// TranslateError enabled so constraint violations map to ErrConstraint.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

const (
	saleSummaryColumns = "s.id, s.vehicle_id, s.client_id, s.user_id, s.status, s.price, s.created_at, " +
		"c.name AS client_name, u.name AS user_name, " +
		"v.brand AS vehicle_brand, v.model AS vehicle_model, v.vin AS vehicle_vin"
	saleDetailColumns = "s.id, s.vehicle_id, s.client_id, s.user_id, s.status, s.price, s.created_at, " +
		"c.name AS client_name, c.document AS client_document, c.email AS client_email, c.phone AS client_phone, " +
		"u.name AS user_name, u.email AS user_email, " +
		"v.vin AS vehicle_vin, v.brand AS vehicle_brand, v.model AS vehicle_model, v.year AS vehicle_year, " +
		"v.color AS vehicle_color, v.mileage AS vehicle_mileage, v.status AS vehicle_status"
)

func (s *Gorm) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *Gorm) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translateError(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Gorm) joinedSales(ctx context.Context, columns string) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("sales AS s").
		Select(columns).
		Joins("JOIN clients c ON c.id = s.client_id").
		Joins("JOIN users u ON u.id = s.user_id").
		Joins("JOIN vehicles v ON v.id = s.vehicle_id")
}

func (s *Gorm) ListSales(ctx context.Context) ([]models.SaleSummary, error) {
	out := []models.SaleSummary{}
	err := s.joinedSales(ctx, saleSummaryColumns).
		Order("s.created_at DESC, s.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, translateError(err)
	}
	if out == nil {
		out = []models.SaleSummary{}
	}
	return out, nil
}

func (s *Gorm) GetSaleDetail(ctx context.Context, id uint) (*models.SaleDetail, error) {
	var d models.SaleDetail
	res := s.joinedSales(ctx, saleDetailColumns).
		Where("s.id = ?", id).
		Limit(1).
		Scan(&d)
	if res.Error != nil {
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *Gorm) ListPayments(ctx context.Context, saleID uint) ([]models.Payment, error) {
	out := []models.Payment{}
	err := s.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("paid_at IS NULL, paid_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translateError(err)
	}
	if out == nil {
		out = []models.Payment{}
	}
	return out, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) LockVehicle(id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := t.forUpdate().First(&v, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

func (t *gormTx) LockSale(id uint) (*models.Sale, error) {
	var s models.Sale
	if err := t.forUpdate().First(&s, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (t *gormTx) SetVehicleStatus(id uint, status models.VehicleStatus) error {
	res := t.db.Model(&models.Vehicle{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) CreateSale(s *models.Sale) error {
	return translateError(t.db.Omit(clause.Associations).Create(s).Error)
}

func (t *gormTx) UpdateSale(s *models.Sale) error {
	res := t.db.Model(&models.Sale{}).Where("id = ?", s.ID).Updates(map[string]any{
		"status": s.Status,
		"price":  s.Price,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteSale(id uint) error {
	res := t.db.Delete(&models.Sale{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) CountPayments(saleID uint) (int64, error) {
	var n int64
	err := t.db.Model(&models.Payment{}).Where("sale_id = ?", saleID).Count(&n).Error
	return n, translateError(err)
}

// translateError maps gorm errors onto the store sentinels, keeping the cause.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}
