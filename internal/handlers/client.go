package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/models"
	"github.com/diewo77/dealership-api/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewClientHandler(db *gorm.DB, log *zap.Logger) *ClientHandler {
	return &ClientHandler{db: db, log: nopIfNil(log)}
}

type clientRequest struct {
	Name     string  `json:"name"`
	Document string  `json:"document"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

func (in *clientRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("document", in.Document, v)
	validation.MaxLen("document", in.Document, 20, v)
	if in.Email != nil {
		validation.Email("email", *in.Email, v)
	}
	if in.Phone != nil {
		validation.MaxLen("phone", *in.Phone, 50, v)
	}
	return v
}

func (in *clientRequest) apply(c *models.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.Document = strings.TrimSpace(in.Document)
	c.Email = in.Email
	c.Phone = in.Phone
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// List handles GET /clients. Supports ?q= (name or document) and ?page=.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 50
	offset := (page - 1) * limit

	db := h.db.WithContext(r.Context()).Model(&models.Client{})
	if query != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
		db = db.Where(`LOWER(name) LIKE ? ESCAPE '\' OR document LIKE ? ESCAPE '\'`, like, like)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	clients := []models.Client{}
	if err := db.Order("name").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		writeInternal(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": clients,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get handles GET /clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var client models.Client
	if err := h.db.WithContext(r.Context()).First(&client, id).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Create handles POST /clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in clientRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	if v := in.validate(); !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	var client models.Client
	in.apply(&client)
	if err := h.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Update handles PUT /clients/{id}.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	var in clientRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	if v := in.validate(); !v.Empty() {
		writeViolations(w, r, v)
		return
	}
	db := h.db.WithContext(r.Context())
	var client models.Client
	if err := db.First(&client, id).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	in.apply(&client)
	if err := db.Save(&client).Error; err != nil {
		h.writeDBError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete handles DELETE /clients/{id}. Clients referenced by sales stay.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeInvalidID(w, r)
		return
	}
	res := h.db.WithContext(r.Context()).Delete(&models.Client{}, id)
	if res.Error != nil {
		h.writeDBError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		h.writeDBError(w, r, gorm.ErrRecordNotFound)
		return
	}
	httpx.NoContent(w)
}

func (h *ClientHandler) writeDBError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.Error(w, r, http.StatusNotFound, "client_not_found", nil)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		httpx.Error(w, r, http.StatusConflict, "document_taken", nil)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		httpx.Error(w, r, http.StatusConflict, "client_has_sales", nil)
	default:
		writeInternal(w, r, h.log, err)
	}
}
