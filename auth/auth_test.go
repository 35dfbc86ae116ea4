package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	raw, exp, err := tokens.Issue(42, "ana@example.com", "seller")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	uid, ok := claims.UserID()
	assert.True(t, ok)
	assert.Equal(t, uint(42), uid)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "seller", claims.Role)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	raw, _, err := tokens.Issue(1, "a@example.com", "admin")
	require.NoError(t, err)

	_, err = NewTokens("other-secret", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(1, "a@example.com", "admin")
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	var gotUID uint
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, _ = UserIDFromContext(r.Context())
		c, ok := ClaimsFromContext(r.Context())
		if !ok || c.Role != "seller" {
			t.Errorf("claims not in context: %+v", c)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := tokens.RequireAuth(nil)(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sales", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "token_missing")

	req := httptest.NewRequest(http.MethodGet, "/sales", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	raw, _, _ := tokens.Issue(7, "s@example.com", "seller")
	req = httptest.NewRequest(http.MethodGet, "/sales", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, uint(7), gotUID)
}

func TestRequireAuth_Verifier(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	gone := func(context.Context, uint) (bool, error) { return false, nil }
	h := tokens.RequireAuth(gone)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for a deleted user")
	}))

	raw, _, _ := tokens.Issue(7, "s@example.com", "seller")
	req := httptest.NewRequest(http.MethodGet, "/sales", nil)
	req.Header.Set("Authorization", "bearer "+raw)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireAuth_VerifierError(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	broken := func(context.Context, uint) (bool, error) { return false, errors.New("connection refused") }
	h := tokens.RequireAuth(broken)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run when the user lookup fails")
	}))

	raw, _, _ := tokens.Issue(7, "s@example.com", "seller")
	req := httptest.NewRequest(http.MethodGet, "/sales", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)
	id, ok := UserIDFromContext(WithUserID(context.Background(), 3))
	assert.True(t, ok)
	assert.Equal(t, uint(3), id)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("S3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "S3cret!", h)
	assert.True(t, CheckPassword(h, "S3cret!"))
	assert.False(t, CheckPassword(h, "wrong"))
}
