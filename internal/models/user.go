package models

import "time"

// Role is the authorization profile name attached to a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSeller
}

// User represents an authenticated back-office user.
// Sales reference the user acting as seller.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Role      Role      `gorm:"size:20;not null;default:'seller'" json:"role"`
}
