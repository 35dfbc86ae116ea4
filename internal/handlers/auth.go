package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLen = 6

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.Tokens
	log    *zap.Logger
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Tokens, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, log: nopIfNil(log)}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Signup handles POST /users/signup. Self-registered users are sellers;
// admins come from the seed.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if in.Password != "" && len(in.Password) < minPasswordLen {
		v["password"] = "out_of_range"
	}
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
		Role:     models.RoleSeller,
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.Error(w, r, http.StatusConflict, "email_taken", nil)
			return
		}
		writeInternal(w, r, h.log, err)
		return
	}
	h.log.Info("user signed up", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	httpx.JSON(w, http.StatusCreated, user)
}

// Login handles POST /users/login and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", in.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeInternal(w, r, h.log, err)
		return
	}
	if err != nil || !auth.CheckPassword(user.Password, in.Password) {
		httpx.Error(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	token, exp, err := h.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: user})
}

// Me handles GET /users/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, http.StatusUnauthorized, "token_missing", nil)
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Error(w, r, http.StatusNotFound, "not_found", nil)
			return
		}
		writeInternal(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// UserExists backs auth.Tokens.RequireAuth so tokens of deleted users stop
// working before they expire.
func (h *AuthHandler) UserExists(ctx context.Context, uid uint) (bool, error) {
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
		h.log.Error("user lookup failed", zap.Uint("user_id", uid), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}
