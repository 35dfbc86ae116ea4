package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus represents the lifecycle of a sale.
// NEGOTIATION is the initial state; CONCLUDED and CANCELLED are terminal.
type SaleStatus string

const (
	SaleStatusNegotiation SaleStatus = "NEGOTIATION"
	SaleStatusConcluded   SaleStatus = "CONCLUDED"
	SaleStatusCancelled   SaleStatus = "CANCELLED"
)

// Terminal returns true once the sale can no longer transition.
func (s SaleStatus) Terminal() bool {
	return s == SaleStatusConcluded || s == SaleStatusCancelled
}

// VehicleStatus returns the vehicle status coupled to this sale status.
func (s SaleStatus) VehicleStatus() VehicleStatus {
	switch s {
	case SaleStatusNegotiation:
		return VehicleStatusReserved
	case SaleStatusConcluded:
		return VehicleStatusSold
	default:
		return VehicleStatusAvailable
	}
}

// Sale links one vehicle, one client and one seller at an agreed price.
type Sale struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	VehicleID uint     `gorm:"index;not null" json:"vehicle_id"`
	Vehicle   *Vehicle `gorm:"foreignKey:VehicleID" json:"-"`
	ClientID  uint     `gorm:"index;not null" json:"client_id"`
	Client    *Client  `gorm:"foreignKey:ClientID" json:"-"`
	UserID    uint     `gorm:"index;not null" json:"user_id"`
	User      *User    `gorm:"foreignKey:UserID" json:"-"`

	Status SaleStatus      `gorm:"size:20;not null;default:'NEGOTIATION'" json:"status"`
	Price  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

// CanAmend returns true while the price is still negotiable.
func (s *Sale) CanAmend() bool {
	return s.Status == SaleStatusNegotiation
}

// SaleSummary is a sale row joined with the display fields used by listings.
type SaleSummary struct {
	ID        uint            `json:"id"`
	VehicleID uint            `json:"vehicle_id"`
	ClientID  uint            `json:"client_id"`
	UserID    uint            `json:"user_id"`
	Status    SaleStatus      `json:"status"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`

	ClientName   string `json:"client_name"`
	UserName     string `json:"user_name"`
	VehicleBrand string `json:"vehicle_brand"`
	VehicleModel string `json:"vehicle_model"`
	VehicleVIN   string `gorm:"column:vehicle_vin" json:"vehicle_vin"`
}

// SaleDetail is the full view of one sale: joined client, seller and vehicle
// fields plus its payments and their aggregates.
type SaleDetail struct {
	ID        uint            `json:"id"`
	VehicleID uint            `json:"vehicle_id"`
	ClientID  uint            `json:"client_id"`
	UserID    uint            `json:"user_id"`
	Status    SaleStatus      `json:"status"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`

	ClientName     string  `json:"client_name"`
	ClientDocument string  `json:"client_document"`
	ClientEmail    *string `json:"client_email,omitempty"`
	ClientPhone    *string `json:"client_phone,omitempty"`

	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`

	VehicleVIN     string        `gorm:"column:vehicle_vin" json:"vehicle_vin"`
	VehicleBrand   string        `json:"vehicle_brand"`
	VehicleModel   string        `json:"vehicle_model"`
	VehicleYear    int           `json:"vehicle_year"`
	VehicleColor   string        `json:"vehicle_color"`
	VehicleMileage int           `json:"vehicle_mileage"`
	VehicleStatus  VehicleStatus `json:"vehicle_status"`

	Payments  []Payment       `gorm:"-" json:"payments"`
	TotalPaid decimal.Decimal `gorm:"-" json:"total_paid"`
	Balance   decimal.Decimal `gorm:"-" json:"balance"`
}

// SetPayments attaches payments and recomputes the paid total and the
// remaining balance against the agreed price.
func (d *SaleDetail) SetPayments(payments []Payment) {
	if payments == nil {
		payments = []Payment{}
	}
	d.Payments = payments
	d.TotalPaid = decimal.Zero
	for _, p := range payments {
		d.TotalPaid = d.TotalPaid.Add(p.Amount)
	}
	d.Balance = d.Price.Sub(d.TotalPaid)
}
