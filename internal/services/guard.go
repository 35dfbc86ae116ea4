package services

import (
	"errors"

	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/internal/store"
)

// claimVehicle locks the vehicle row for the rest of tx and checks that no
// active sale holds it. The caller writes RESERVED in the same unit of work.
func claimVehicle(tx store.Tx, vehicleID uint) (*models.Vehicle, error) {
	v, err := tx.LockVehicle(vehicleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	if !v.IsAvailable() {
		return nil, ErrVehicleNotAvailable
	}
	return v, nil
}
