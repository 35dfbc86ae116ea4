package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/services"
	"github.com/diewo77/dealership-api/validation"
	"go.uber.org/zap"
)

// parseID reads the {id} path value. Zero is not a valid id.
func parseID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func writeInvalidID(w http.ResponseWriter, r *http.Request) {
	httpx.Error(w, r, http.StatusBadRequest, "invalid_id", nil)
}

func writeInvalidJSON(w http.ResponseWriter, r *http.Request) {
	httpx.Error(w, r, http.StatusBadRequest, "invalid_json", nil)
}

func writeViolations(w http.ResponseWriter, r *http.Request, v validation.Violations) {
	httpx.Error(w, r, http.StatusBadRequest, "validation_error", v)
}

func writeInternal(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	httpx.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
}

// writeServiceError maps a sale service failure onto an HTTP response.
// Preconditions keep their code; store constraint violations (unknown
// client or user, missing sale on payment) are client errors.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		status := http.StatusConflict
		if se.Kind == services.KindNotFound {
			status = http.StatusNotFound
		}
		httpx.Error(w, r, status, se.Code, nil)
		return
	}
	if services.IsConstraint(err) {
		httpx.Error(w, r, http.StatusBadRequest, "constraint_violation", nil)
		return
	}
	writeInternal(w, r, log, err)
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
