// Package httpx holds the JSON response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/dealership-api/i18n"
)

// ErrorResponse is the body of every error response. Error is a stable code,
// Message its translation in the request language.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes an error body whose message is translated into the language
// negotiated for r (context first, then Accept-Language).
func Error(w http.ResponseWriter, r *http.Request, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Message: i18n.T(Lang(r), code), Details: details})
}

// Lang returns the language of the request.
func Lang(r *http.Request) string {
	if lang, ok := i18n.FromContext(r.Context()); ok {
		return lang
	}
	return i18n.DetectLanguage(r.Header.Get("Accept-Language"))
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
