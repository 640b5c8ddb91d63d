// Package httpx provides HTTP response utilities for the API envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the machine-readable failure envelope.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ValidationBody carries field-level validation failures.
type ValidationBody struct {
	Errors  []FieldError `json:"errors"`
	Message string       `json:"message"`
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
