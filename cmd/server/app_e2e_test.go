package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/internal/config"
	"github.com/diewo77/dealership-api/internal/db"
	"github.com/diewo77/dealership-api/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type e2e struct {
	t   *testing.T
	app *App
}

func setupE2E(t *testing.T) *e2e {
	t.Helper()
	log := zaptest.NewLogger(t)
	conn, err := db.Connect(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:e2e_" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on",
	}, false, log)
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(conn, "", false))
	created, err := db.Seed(conn, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	require.True(t, created)

	tokens := auth.NewTokens("e2e-secret", time.Hour)
	return &e2e{t: t, app: NewApp(conn, policy.NewRouterConfig(conn, tokens, log), log)}
}

func (e *e2e) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.app.ServeHTTP(rr, req)
	return rr
}

func (e *e2e) decode(rr *httptest.ResponseRecorder, dst any) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func (e *e2e) login(email, password string) string {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/users/login", "", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	e.decode(rr, &out)
	require.NotEmpty(e.t, out.Token)
	return out.Token
}

func (e *e2e) id(rr *httptest.ResponseRecorder) uint {
	e.t.Helper()
	var out struct {
		ID uint `json:"id"`
	}
	e.decode(rr, &out)
	require.NotZero(e.t, out.ID)
	return out.ID
}

func TestHealthAndRequestID(t *testing.T) {
	e := setupE2E(t)
	rr := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestAuthenticationErrors(t *testing.T) {
	e := setupE2E(t)

	rr := e.do(http.MethodGet, "/sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	e.decode(rr, &body)
	assert.Equal(t, "token_missing", body.Error)
	assert.Equal(t, "Token not provided", body.Message)

	rr = e.do(http.MethodGet, "/sales", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	other := auth.NewTokens("another-secret", time.Hour)
	forged, _, err := other.Issue(1, "admin@example.com", "admin")
	require.NoError(t, err)
	rr = e.do(http.MethodGet, "/sales", forged, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSaleLifecycleE2E(t *testing.T) {
	e := setupE2E(t)
	admin := e.login("admin@example.com", "admin-pass")

	rr := e.do(http.MethodPost, "/users/signup", "", map[string]string{"name": "Carla", "email": "carla@example.com", "password": "seller-pass"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	seller := e.login("carla@example.com", "seller-pass")

	rr = e.do(http.MethodGet, "/users/me", seller, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"seller"`)

	vehicle := map[string]any{
		"vin": "9BWZZZ377VT004251", "brand": "VW", "model": "Gol", "year": 2020,
		"color": "white", "purchase_price": "30000.00", "sale_price": "40000.00",
	}
	rr = e.do(http.MethodPost, "/vehicles", seller, vehicle)
	assert.Equal(t, http.StatusForbidden, rr.Code, "sellers do not edit inventory")
	rr = e.do(http.MethodPost, "/vehicles", admin, vehicle)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	vehicleID := e.id(rr)

	rr = e.do(http.MethodPost, "/clients", seller, map[string]string{"name": "Ana Souza", "document": "123.456.789-00"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	clientID := e.id(rr)

	rr = e.do(http.MethodPost, "/sales", seller, map[string]any{"vehicle_id": vehicleID, "client_id": clientID, "price": "39000.00"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saleID := e.id(rr)
	salePath := fmt.Sprintf("/sales/%d", saleID)

	rr = e.do(http.MethodPost, "/sales", admin, map[string]any{"vehicle_id": vehicleID, "client_id": clientID, "price": "1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "vehicle_not_available")

	rr = e.do(http.MethodPut, fmt.Sprintf("/vehicles/%d", vehicleID), admin, vehicle)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "vehicle_locked")

	rr = e.do(http.MethodPost, salePath+"/payments", seller, map[string]any{"method": "PIX", "amount": "9000.00"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(http.MethodPatch, salePath+"/conclude", seller, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodGet, salePath, seller, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail struct {
		Status        string `json:"status"`
		VehicleStatus string `json:"vehicle_status"`
		UserName      string `json:"user_name"`
		Balance       string `json:"balance"`
		Payments      []any  `json:"payments"`
	}
	e.decode(rr, &detail)
	assert.Equal(t, "CONCLUDED", detail.Status)
	assert.Equal(t, "SOLD", detail.VehicleStatus)
	assert.Equal(t, "Carla", detail.UserName)
	assert.Equal(t, "30000", detail.Balance)
	assert.Len(t, detail.Payments, 1)

	rr = e.do(http.MethodPatch, salePath+"/cancel", seller, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "sale_concluded_immutable")

	rr = e.do(http.MethodDelete, salePath, seller, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code, "only admins delete sales")
	rr = e.do(http.MethodDelete, salePath, admin, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "sale_concluded_undeletable")

	rr = e.do(http.MethodGet, "/sales", seller, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	e.decode(rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "9BWZZZ377VT004251", list[0]["vehicle_vin"])
}

func TestCancelAndDeleteE2E(t *testing.T) {
	e := setupE2E(t)
	admin := e.login("admin@example.com", "admin-pass")

	rr := e.do(http.MethodPost, "/vehicles", admin, map[string]any{
		"vin": "VIN0001", "brand": "Fiat", "model": "Uno", "year": 2015,
		"purchase_price": 10000, "sale_price": 15000,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	vehicleID := e.id(rr)
	rr = e.do(http.MethodPost, "/clients", admin, map[string]string{"name": "Bruno", "document": "999"})
	require.Equal(t, http.StatusCreated, rr.Code)
	clientID := e.id(rr)

	rr = e.do(http.MethodPost, "/sales", admin, map[string]any{"vehicle_id": vehicleID, "client_id": clientID, "price": 14000})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	salePath := fmt.Sprintf("/sales/%d", e.id(rr))

	rr = e.do(http.MethodPatch, salePath+"/cancel", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodGet, fmt.Sprintf("/vehicles/%d", vehicleID), admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"AVAILABLE"`)

	rr = e.do(http.MethodDelete, salePath, admin, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	rr = e.do(http.MethodGet, salePath, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// the released vehicle can be sold again
	rr = e.do(http.MethodPost, "/sales", admin, map[string]any{"vehicle_id": vehicleID, "client_id": clientID, "price": 14500})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestUserAdministrationE2E(t *testing.T) {
	e := setupE2E(t)
	admin := e.login("admin@example.com", "admin-pass")

	rr := e.do(http.MethodPost, "/users/signup", "", map[string]string{"name": "Davi", "email": "davi@example.com", "password": "seller-pass"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sellerID := e.id(rr)
	seller := e.login("davi@example.com", "seller-pass")
	userPath := fmt.Sprintf("/users/%d", sellerID)

	rr = e.do(http.MethodGet, "/users", seller, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code, "sellers do not administer users")
	rr = e.do(http.MethodDelete, userPath, seller, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var users []map[string]any
	e.decode(rr, &users)
	assert.Len(t, users, 2)
	assert.NotContains(t, rr.Body.String(), "password")

	// /users/me still resolves to the caller, not to an id
	rr = e.do(http.MethodGet, "/users/me", seller, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"davi@example.com"`)

	rr = e.do(http.MethodPut, userPath, admin, map[string]string{"name": "Davi Lima", "email": "admin@example.com"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "email_taken")
	rr = e.do(http.MethodPut, userPath, admin, map[string]string{"name": "Davi Lima", "email": "davi@example.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"name":"Davi Lima"`)

	rr = e.do(http.MethodDelete, userPath, admin, nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	rr = e.do(http.MethodGet, userPath, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// the deleted seller's token no longer authenticates
	rr = e.do(http.MethodGet, "/sales", seller, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "token_invalid")
	rr = e.do(http.MethodGet, "/users/me", seller, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUserWithSalesNotDeletableE2E(t *testing.T) {
	e := setupE2E(t)
	admin := e.login("admin@example.com", "admin-pass")

	rr := e.do(http.MethodPost, "/users/signup", "", map[string]string{"name": "Eva", "email": "eva@example.com", "password": "seller-pass"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sellerID := e.id(rr)
	seller := e.login("eva@example.com", "seller-pass")

	rr = e.do(http.MethodPost, "/vehicles", admin, map[string]any{
		"vin": "VIN0002", "brand": "Fiat", "model": "Uno", "year": 2015,
		"purchase_price": 10000, "sale_price": 15000,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	vehicleID := e.id(rr)
	rr = e.do(http.MethodPost, "/clients", seller, map[string]string{"name": "Bruno", "document": "999"})
	require.Equal(t, http.StatusCreated, rr.Code)
	clientID := e.id(rr)
	rr = e.do(http.MethodPost, "/sales", seller, map[string]any{"vehicle_id": vehicleID, "client_id": clientID, "price": 14000})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(http.MethodDelete, fmt.Sprintf("/users/%d", sellerID), admin, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "user_has_sales")
	rr = e.do(http.MethodGet, "/sales", seller, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
