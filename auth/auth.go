package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/dealership-api/httpx"
)

type ctxKey string

const (
	userIDCtxKey = ctxKey("userID")
	claimsCtxKey = ctxKey("claims")
)

// UserVerifier is an optional callback to validate that a token's user still
// exists. If nil, no extra verification is performed. A non-nil error means
// the check itself failed and the request is rejected with a 500.
type UserVerifier func(ctx context.Context, uid uint) (bool, error)

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// WithClaims stores the verified claims and their user id in context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	uid, _ := c.UserID()
	return context.WithValue(WithUserID(ctx, uid), claimsCtxKey, c)
}

// ClaimsFromContext extracts the verified claims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid bearer token: 401 when it is
// missing, 403 when it is invalid, expired or its user is gone, 500 when the
// user lookup fails. On success
// the claims and user id are attached to the request context.
func (t *Tokens) RequireAuth(verify UserVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.Error(w, r, http.StatusUnauthorized, "token_missing", nil)
				return
			}
			claims, err := t.Parse(raw)
			if err != nil {
				httpx.Error(w, r, http.StatusForbidden, "token_invalid", nil)
				return
			}
			uid, _ := claims.UserID()
			if verify != nil {
				ok, err := verify(r.Context(), uid)
				if err != nil {
					httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
					return
				}
				if !ok {
					httpx.Error(w, r, http.StatusForbidden, "token_invalid", nil)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
