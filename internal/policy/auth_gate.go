package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/gate"
	"github.com/diewo77/dealership-api/httpx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthGate holds the configured gate with its profile cache.
type AuthGate struct {
	Gate          *gate.Gate[uint]
	CacheResolver *gate.CachedResolver[uint]
	log           *zap.Logger
}

// NewAuthGate creates the authorization gate.
// - db: users table lookups for the role
// - cacheTTL: how long a resolved profile is reused (e.g. 5*time.Minute)
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration, log *zap.Logger) *AuthGate {
	return newAuthGate(NewDBRoleResolver(db, DefaultRoles()), cacheTTL, log)
}

func newAuthGate(resolver gate.ProfileResolver[uint], cacheTTL time.Duration, log *zap.Logger) *AuthGate {
	if log == nil {
		log = zap.NewNop()
	}
	cached := gate.NewCachedResolver[uint](resolver, cacheTTL)
	return &AuthGate{
		Gate:          gate.NewGate[uint](cached),
		CacheResolver: cached,
		log:           log.Named("policy"),
	}
}

// Authorize checks the current user against resourceType:action.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType)
}

// RequirePermission returns middleware that checks a profile permission.
// It runs after authentication.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := ag.Authorize(r.Context(), action, resourceType)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, gate.ErrUnauthorized):
				httpx.Error(w, r, http.StatusUnauthorized, "token_missing", nil)
			case errors.Is(err, gate.ErrForbidden):
				httpx.Error(w, r, http.StatusForbidden, "forbidden", nil)
			default:
				ag.log.Error("profile lookup failed", zap.String("resource", resourceType), zap.Error(err))
				httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
			}
		})
	}
}
