package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/internal/models"
	"gorm.io/gorm"
)

// Seed creates the default admin account when no user holds adminEmail.
// It is idempotent. An empty password skips seeding.
func Seed(conn *gorm.DB, adminEmail, adminPassword string) (bool, error) {
	if adminEmail == "" || adminPassword == "" {
		return false, nil
	}
	var existing models.User
	err := conn.Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("seed lookup: %w", err)
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return false, fmt.Errorf("seed hash: %w", err)
	}
	admin := models.User{
		Name:     "Administrator",
		Email:    adminEmail,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := conn.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}
