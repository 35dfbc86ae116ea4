package models

import "time"

// Client is a dealership customer. Document (CPF/CNPJ or equivalent) is unique.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Document  string    `gorm:"size:20;uniqueIndex;not null" json:"document"`
	Email     *string   `gorm:"size:255" json:"email,omitempty"`
	Phone     *string   `gorm:"size:50" json:"phone,omitempty"`
}
