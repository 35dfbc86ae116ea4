package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleStatus represents where a vehicle stands in the inventory.
type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "AVAILABLE"
	VehicleStatusReserved  VehicleStatus = "RESERVED"
	VehicleStatusSold      VehicleStatus = "SOLD"
	VehicleStatusInactive  VehicleStatus = "INACTIVE"
)

// Valid reports whether s is one of the known vehicle statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusReserved, VehicleStatusSold, VehicleStatusInactive:
		return true
	}
	return false
}

// Vehicle is a car held in the dealership inventory.
// Status is written by the sale lifecycle (RESERVED, SOLD, back to AVAILABLE)
// and by inventory edits (AVAILABLE <-> INACTIVE only).
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Identification
	VIN   string `gorm:"size:17;uniqueIndex;not null" json:"vin"`
	Brand string `gorm:"size:100;not null" json:"brand"`
	Model string `gorm:"size:100;not null" json:"model"`
	Year  int    `gorm:"not null" json:"year"`
	Color string `gorm:"size:50;not null" json:"color"`

	Mileage int `gorm:"not null;default:0" json:"mileage"`

	// Pricing
	PurchasePrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"purchase_price"`
	SalePrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"sale_price"`

	Status VehicleStatus `gorm:"size:20;not null;default:'AVAILABLE';index" json:"status"`
}

// IsAvailable returns true if the vehicle can be claimed by a new sale.
func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}

// Locked returns true while a sale holds the vehicle (negotiating or sold).
// Inventory edits are refused in that case.
func (v *Vehicle) Locked() bool {
	return v.Status == VehicleStatusReserved || v.Status == VehicleStatusSold
}
