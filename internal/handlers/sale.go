package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/services"
	"github.com/diewo77/dealership-api/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleHandler exposes the sale lifecycle, the payment ledger and the sale
// read model over JSON.
type SaleHandler struct {
	sales *services.SaleService
	log   *zap.Logger
}

func NewSaleHandler(sales *services.SaleService, log *zap.Logger) *SaleHandler {
	return &SaleHandler{sales: sales, log: nopIfNil(log)}
}

type createSaleRequest struct {
	VehicleID uint             `json:"vehicle_id"`
	ClientID  uint             `json:"client_id"`
	Price     *decimal.Decimal `json:"price"`
}

type amendSaleRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type paymentRequest struct {
	Method string           `json:"method"`
	Amount *decimal.Decimal `json:"amount"`
	PaidAt *time.Time       `json:"paid_at"`
}

func validPrice(field string, price *decimal.Decimal, v validation.Violations) {
	validation.RequiredDecimal(field, price, v)
	if price != nil {
		validation.NonNegativeDecimal(field, *price, v)
		validation.Money(field, *price, v)
	}
}

// List handles GET /sales.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

// Get handles GET /sales/{id}.
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	detail, err := h.sales.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if detail == nil {
		httpx.Error(w, r, http.StatusNotFound, services.ErrSaleNotFound.Code, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Create handles POST /sales. The seller is the authenticated user.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "token_missing", nil)
		return
	}
	var in createSaleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	v := validation.Violations{}
	validation.RequiredID("vehicle_id", in.VehicleID, v)
	validation.RequiredID("client_id", in.ClientID, v)
	validPrice("price", in.Price, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	sale, err := h.sales.Create(r.Context(), services.CreateSaleInput{
		VehicleID: in.VehicleID,
		ClientID:  in.ClientID,
		UserID:    userID,
		Price:     *in.Price,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

// Amend handles PUT /sales/{id}; only the price can change.
func (h *SaleHandler) Amend(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var in amendSaleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	v := validation.Violations{}
	validPrice("price", in.Price, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	sale, err := h.sales.AmendPrice(r.Context(), id, *in.Price)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

// Conclude handles PATCH /sales/{id}/conclude.
func (h *SaleHandler) Conclude(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sales.Conclude)
}

// Cancel handles PATCH /sales/{id}/cancel.
func (h *SaleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sales.Cancel)
}

func (h *SaleHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uint) error) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	if err := apply(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	detail, err := h.sales.Get(r.Context(), id)
	if err != nil || detail == nil {
		// the transition committed; the read back is best effort
		httpx.NoContent(w)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Delete handles DELETE /sales/{id}.
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	deleted, err := h.sales.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if !deleted {
		httpx.Error(w, r, http.StatusNotFound, services.ErrSaleNotFound.Code, nil)
		return
	}
	httpx.NoContent(w)
}

// AddPayment handles POST /sales/{id}/payments.
func (h *SaleHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var in paymentRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	v := validation.Violations{}
	validation.Required("method", in.Method, v)
	validation.MaxLen("method", in.Method, 50, v)
	validation.RequiredDecimal("amount", in.Amount, v)
	if in.Amount != nil {
		validation.PositiveDecimal("amount", *in.Amount, v)
		validation.Money("amount", *in.Amount, v)
	}
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	p, err := h.sales.AddPayment(r.Context(), services.AddPaymentInput{
		SaleID: id,
		Method: in.Method,
		Amount: *in.Amount,
		PaidAt: in.PaidAt,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}
