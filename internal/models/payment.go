package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only record of money received against a sale.
type Payment struct {
	ID     uint            `gorm:"primaryKey" json:"id"`
	SaleID uint            `gorm:"index;not null" json:"sale_id"`
	Sale   *Sale           `gorm:"foreignKey:SaleID;constraint:OnDelete:RESTRICT" json:"-"`
	Method string          `gorm:"size:50;not null" json:"method"` // e.g. PIX, CASH, CARD, FINANCING
	Amount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaidAt *time.Time      `json:"paid_at"`
}

// TableName keeps the ledger in its own table name.
func (Payment) TableName() string { return "sale_payments" }

// SortPayments orders payments by PaidAt ascending with unset dates last,
// breaking ties by ID.
func SortPayments(payments []Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i].PaidAt, payments[j].PaidAt
		switch {
		case a == nil && b == nil:
			return payments[i].ID < payments[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return payments[i].ID < payments[j].ID
		}
		return a.Before(*b)
	})
}
