package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errVehicleLocked aborts an inventory edit on a reserved or sold vehicle.
var errVehicleLocked = errors.New("vehicle is held by a sale")

// VehicleHandler manages the inventory. Status changes coupled to sales
// belong to the sale service; here a vehicle can only be toggled between
// AVAILABLE and INACTIVE, and never while a sale holds it.
type VehicleHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewVehicleHandler(db *gorm.DB, log *zap.Logger) *VehicleHandler {
	return &VehicleHandler{db: db, log: nopIfNil(log)}
}

type vehicleRequest struct {
	VIN           string           `json:"vin"`
	Brand         string           `json:"brand"`
	Model         string           `json:"model"`
	Year          int              `json:"year"`
	Color         string           `json:"color"`
	Mileage       *int             `json:"mileage"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	Status        string           `json:"status"`
}

func (in *vehicleRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("vin", in.VIN, v)
	validation.MaxLen("vin", in.VIN, 17, v)
	validation.Required("brand", in.Brand, v)
	validation.MaxLen("brand", in.Brand, 100, v)
	validation.Required("model", in.Model, v)
	validation.MaxLen("model", in.Model, 100, v)
	validation.RangeInt("year", in.Year, 1900, time.Now().Year()+1, v)
	validation.MaxLen("color", in.Color, 50, v)
	if in.Mileage != nil {
		validation.NonNegativeInt("mileage", *in.Mileage, v)
	}
	validPrice("purchase_price", in.PurchasePrice, v)
	validPrice("sale_price", in.SalePrice, v)
	if in.Status != "" {
		validation.OneOf("status", in.Status, v, string(models.VehicleStatusAvailable), string(models.VehicleStatusInactive))
	}
	return v
}

// apply copies the request onto vehicle. Mileage and status are optional.
func (in *vehicleRequest) apply(vehicle *models.Vehicle) {
	vehicle.VIN = in.VIN
	vehicle.Brand = in.Brand
	vehicle.Model = in.Model
	vehicle.Year = in.Year
	vehicle.Color = in.Color
	if in.Mileage != nil {
		vehicle.Mileage = *in.Mileage
	}
	vehicle.PurchasePrice = in.PurchasePrice.Round(2)
	vehicle.SalePrice = in.SalePrice.Round(2)
	if in.Status != "" {
		vehicle.Status = models.VehicleStatus(in.Status)
	}
}

// List handles GET /vehicles, newest first. ?status= filters.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := h.db.WithContext(r.Context()).Order("created_at DESC, id DESC")
	if st := r.URL.Query().Get("status"); st != "" {
		if !models.VehicleStatus(st).Valid() {
			writeViolations(w, r, validation.Violations{"status": "invalid"})
			return
		}
		q = q.Where("status = ?", st)
	}
	vehicles := []models.Vehicle{}
	if err := q.Find(&vehicles).Error; err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicles)
}

// Get handles GET /vehicles/{id}.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var vehicle models.Vehicle
	if err := h.db.WithContext(r.Context()).First(&vehicle, id).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

// Create handles POST /vehicles. New vehicles are AVAILABLE unless created
// INACTIVE.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in vehicleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	if v := in.validate(); !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	vehicle := models.Vehicle{Status: models.VehicleStatusAvailable}
	in.apply(&vehicle)
	if err := h.db.WithContext(r.Context()).Create(&vehicle).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	h.log.Info("vehicle created", zap.Uint("vehicle_id", vehicle.ID), zap.String("vin", vehicle.VIN))
	httpx.JSON(w, http.StatusCreated, vehicle)
}

// Update handles PUT /vehicles/{id}. The row is locked so a concurrent sale
// cannot reserve the vehicle between the check and the write.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var in vehicleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	if v := in.validate(); !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	var vehicle models.Vehicle
	err := h.withLockedVehicle(r, id, &vehicle, func(tx *gorm.DB) error {
		in.apply(&vehicle)
		return tx.Save(&vehicle).Error
	})
	if err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /vehicles/{id}. Vehicles are referenced by sales, so
// deleting only marks them INACTIVE.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var vehicle models.Vehicle
	err := h.withLockedVehicle(r, id, &vehicle, func(tx *gorm.DB) error {
		vehicle.Status = models.VehicleStatusInactive
		return tx.Model(&vehicle).Update("status", vehicle.Status).Error
	})
	if err != nil {
		h.writeDBError(w, r, err)
		return
	}
	h.log.Info("vehicle inactivated", zap.Uint("vehicle_id", vehicle.ID))
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) withLockedVehicle(r *http.Request, id uint, vehicle *models.Vehicle, fn func(tx *gorm.DB) error) error {
	return h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(vehicle, id).Error; err != nil {
			return err
		}
		if vehicle.Locked() {
			return errVehicleLocked
		}
		return fn(tx)
	})
}

func (h *VehicleHandler) writeDBError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.Error(w, r, http.StatusNotFound, "vehicle_not_found", nil)
	case errors.Is(err, errVehicleLocked):
		httpx.Error(w, r, http.StatusConflict, "vehicle_locked", nil)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		httpx.Error(w, r, http.StatusConflict, "vin_taken", nil)
	default:
		writeInternal(w, r, h.log, err)
	}
}
