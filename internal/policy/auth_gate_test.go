package policy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/gate"
	"github.com/diewo77/dealership-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) uint {
	t.Helper()
	u := models.User{Name: email, Email: email, Password: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u.ID
}

func TestDefaultRoles(t *testing.T) {
	roles := DefaultRoles()
	admin := roles.Profile("admin")
	seller := roles.Profile("seller")
	if admin == nil || seller == nil {
		t.Fatal("expected admin and seller profiles")
	}

	cases := []struct {
		resource string
		action   gate.Action
		seller   bool
	}{
		{ResourceClient, gate.ActionCreate, true},
		{ResourceClient, gate.ActionDelete, true},
		{ResourceVehicle, gate.ActionList, true},
		{ResourceVehicle, gate.ActionView, true},
		{ResourceVehicle, gate.ActionCreate, false},
		{ResourceVehicle, gate.ActionUpdate, false},
		{ResourceVehicle, gate.ActionDelete, false},
		{ResourceSale, gate.ActionCreate, true},
		{ResourceSale, gate.ActionConclude, true},
		{ResourceSale, gate.ActionCancel, true},
		{ResourceSale, gate.ActionPay, true},
		{ResourceSale, gate.ActionUpdate, true},
		{ResourceSale, gate.ActionDelete, false},
	}
	for _, tc := range cases {
		perm := gate.NewPermission(tc.resource, tc.action)
		if !admin.HasPermission(perm) {
			t.Errorf("admin should have %s", perm)
		}
		if got := seller.HasPermission(perm); got != tc.seller {
			t.Errorf("seller %s: got %v want %v", perm, got, tc.seller)
		}
	}
	if roles.Profile("unknown") != nil {
		t.Error("unknown role should have no profile")
	}
}

func TestDBRoleResolver(t *testing.T) {
	db := setupTestDB(t)
	adminID := createUser(t, db, "admin@example.com", models.RoleAdmin)
	sellerID := createUser(t, db, "seller@example.com", models.RoleSeller)
	r := NewDBRoleResolver(db, DefaultRoles())
	ctx := context.Background()

	p, err := r.Resolve(ctx, adminID)
	if err != nil || p == nil || p.Name() != "admin" {
		t.Fatalf("admin: got %v, %v", p, err)
	}
	p, err = r.Resolve(ctx, sellerID)
	if err != nil || p == nil || p.Name() != "seller" {
		t.Fatalf("seller: got %v, %v", p, err)
	}
	p, err = r.Resolve(ctx, 999)
	if err != nil || p != nil {
		t.Fatalf("missing user: got %v, %v", p, err)
	}
}

func serve(ag *AuthGate, resource string, action gate.Action, userID uint) *httptest.ResponseRecorder {
	h := ag.RequirePermission(resource, action)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequirePermission(t *testing.T) {
	db := setupTestDB(t)
	adminID := createUser(t, db, "admin@example.com", models.RoleAdmin)
	sellerID := createUser(t, db, "seller@example.com", models.RoleSeller)
	ag := NewAuthGate(db, time.Minute, nil)

	if rr := serve(ag, ResourceSale, gate.ActionDelete, adminID); rr.Code != http.StatusTeapot {
		t.Errorf("admin delete sale: got %d", rr.Code)
	}
	if rr := serve(ag, ResourceSale, gate.ActionDelete, sellerID); rr.Code != http.StatusForbidden {
		t.Errorf("seller delete sale: got %d", rr.Code)
	}
	if rr := serve(ag, ResourceSale, gate.ActionConclude, sellerID); rr.Code != http.StatusTeapot {
		t.Errorf("seller conclude: got %d", rr.Code)
	}
	if rr := serve(ag, ResourceVehicle, gate.ActionCreate, sellerID); rr.Code != http.StatusForbidden {
		t.Errorf("seller create vehicle: got %d", rr.Code)
	}
	for _, action := range []gate.Action{gate.ActionList, gate.ActionView, gate.ActionUpdate, gate.ActionDelete} {
		if rr := serve(ag, ResourceUser, action, sellerID); rr.Code != http.StatusForbidden {
			t.Errorf("seller %s user: got %d", action, rr.Code)
		}
		if rr := serve(ag, ResourceUser, action, adminID); rr.Code != http.StatusTeapot {
			t.Errorf("admin %s user: got %d", action, rr.Code)
		}
	}
	if rr := serve(ag, ResourceSale, gate.ActionList, 0); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d", rr.Code)
	}
	if rr := serve(ag, ResourceSale, gate.ActionList, 999); rr.Code != http.StatusForbidden {
		t.Errorf("unknown user: got %d", rr.Code)
	}

	ctx := auth.WithUserID(context.Background(), sellerID)
	if err := ag.Authorize(ctx, gate.ActionPay, ResourceSale); err != nil {
		t.Errorf("seller pay: %v", err)
	}
	if err := ag.Authorize(ctx, gate.ActionDelete, ResourceSale); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("seller delete sale: expected ErrForbidden, got %v", err)
	}
}

func TestRequirePermission_ResolverFailure(t *testing.T) {
	failing := gate.ResolverFunc[uint](func(ctx context.Context, id uint) (gate.Profile, error) {
		return nil, errors.New("db down")
	})
	ag := newAuthGate(failing, time.Minute, nil)
	if rr := serve(ag, ResourceSale, gate.ActionList, 1); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}
