package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/gate"
	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserHandler lets admins list, edit and remove back-office users.
// Profile cache entries are dropped on every change so a new role or a
// removal applies on the next request.
type UserHandler struct {
	db            *gorm.DB
	cacheResolver *gate.CachedResolver[uint]
	log           *zap.Logger
}

// NewUserHandler creates a user handler. cacheResolver may be nil.
func NewUserHandler(db *gorm.DB, cacheResolver *gate.CachedResolver[uint], log *zap.Logger) *UserHandler {
	return &UserHandler{db: db, cacheResolver: cacheResolver, log: nopIfNil(log)}
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (in *userRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("email", in.Email, 255, v)
	if in.Role != "" {
		validation.OneOf("role", in.Role, v, string(models.RoleAdmin), string(models.RoleSeller))
	}
	return v
}

// List handles GET /users, newest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	if err := h.db.WithContext(r.Context()).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, id).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Update handles PUT /users/{id}. Name and email are replaced; role only
// when given.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var in userRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if v := in.validate(); !v.Empty() {
		writeViolations(w, r, v)
		return
	}

	db := h.db.WithContext(r.Context())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	user.Name = strings.TrimSpace(in.Name)
	user.Email = in.Email
	if in.Role != "" {
		user.Role = models.Role(in.Role)
	}
	if err := db.Model(&user).Select("name", "email", "role").Updates(&user).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	h.invalidate(user.ID)
	h.log.Info("user updated", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	httpx.JSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}. Users referenced by sales stay, and an
// admin cannot remove their own account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	if current, _ := auth.UserIDFromContext(r.Context()); current == id {
		httpx.Error(w, r, http.StatusConflict, "cannot_delete_self", nil)
		return
	}
	res := h.db.WithContext(r.Context()).Delete(&models.User{}, id)
	if res.Error != nil {
		h.writeDBError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		h.writeDBError(w, r, gorm.ErrRecordNotFound)
		return
	}
	h.invalidate(id)
	h.log.Info("user deleted", zap.Uint("user_id", id))
	httpx.NoContent(w)
}

func (h *UserHandler) invalidate(id uint) {
	if h.cacheResolver != nil {
		h.cacheResolver.Invalidate(id)
	}
}

func (h *UserHandler) writeDBError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.Error(w, r, http.StatusNotFound, "user_not_found", nil)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		httpx.Error(w, r, http.StatusConflict, "email_taken", nil)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		httpx.Error(w, r, http.StatusConflict, "user_has_sales", nil)
	default:
		writeInternal(w, r, h.log, err)
	}
}
