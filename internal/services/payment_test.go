package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/dealership-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPayment_AnyStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		negotiating := h.create(t, h.vehicle(t), 1000)
		concluded := h.create(t, h.vehicle(t), 1000)
		require.NoError(t, h.svc.Conclude(ctx, concluded.ID))
		cancelled := h.create(t, h.vehicle(t), 1000)
		require.NoError(t, h.svc.Cancel(ctx, cancelled.ID))

		for _, s := range []*models.Sale{negotiating, concluded, cancelled} {
			p, err := h.svc.AddPayment(ctx, AddPaymentInput{SaleID: s.ID, Method: "PIX", Amount: decimal.NewFromInt(250)})
			require.NoError(t, err)
			assert.NotZero(t, p.ID)
			assert.Equal(t, s.ID, p.SaleID)
			assert.Nil(t, p.PaidAt)
		}
		// payments never move the state machine
		got, _ := h.sale(t, concluded.ID)
		assert.Equal(t, models.SaleStatusConcluded, got.Status)
		h.checkInvariant(t)
	})
}

func TestAddPayment_UnknownSale(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		_, err := h.svc.AddPayment(context.Background(), AddPaymentInput{SaleID: 9999, Method: "CASH", Amount: decimal.NewFromInt(1)})
		require.Error(t, err)
		assert.True(t, IsConstraint(err), "got %v", err)
		assert.Equal(t, KindStoreFailure, KindOf(err))
	})
}

func TestGet_PaymentsAndBalance(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		s := h.create(t, h.vehicle(t), 50000)

		early := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
		late := early.Add(48 * time.Hour)
		inputs := []AddPaymentInput{
			{SaleID: s.ID, Method: "FINANCING", Amount: decimal.NewFromInt(30000)},
			{SaleID: s.ID, Method: "PIX", Amount: decimal.RequireFromString("5000.50"), PaidAt: &late},
			{SaleID: s.ID, Method: "CASH", Amount: decimal.NewFromInt(10000), PaidAt: &early},
		}
		for _, in := range inputs {
			_, err := h.svc.AddPayment(ctx, in)
			require.NoError(t, err)
		}

		d, err := h.svc.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, s.ID, d.ID)
		assert.Equal(t, "Ana", d.ClientName)
		assert.Equal(t, "Seller", d.UserName)
		assert.Equal(t, models.VehicleStatusReserved, d.VehicleStatus)

		require.Len(t, d.Payments, 3)
		assert.Equal(t, "CASH", d.Payments[0].Method)
		assert.Equal(t, "PIX", d.Payments[1].Method)
		assert.Equal(t, "FINANCING", d.Payments[2].Method)
		assert.True(t, d.TotalPaid.Equal(decimal.RequireFromString("45000.50")), "total = %s", d.TotalPaid)
		assert.True(t, d.Balance.Equal(decimal.RequireFromString("4999.50")), "balance = %s", d.Balance)
	})
}

func TestGet_Missing(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		d, err := h.svc.Get(context.Background(), 9999)
		assert.NoError(t, err)
		assert.Nil(t, d)
	})
}

func TestList_NewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		empty, err := h.svc.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		first := h.create(t, h.vehicle(t), 1000)
		time.Sleep(5 * time.Millisecond)
		second := h.create(t, h.vehicle(t), 2000)

		list, err := h.svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
		assert.Equal(t, "VW", list[0].VehicleBrand)
		assert.Equal(t, "Ana", list[0].ClientName)
		assert.True(t, list[0].Price.Equal(decimal.NewFromInt(2000)))
	})
}
