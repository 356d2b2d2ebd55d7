// Package handler serves the payfees HTTP endpoints: the serverless-style
// payment functions and the REST API the client talks to.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/payfees/internal/catalog"
	"github.com/mmynk/payfees/internal/payments"
	"github.com/mmynk/payfees/internal/storage"
)

// Error codes carried in REST error bodies.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Code: code})
}

// writeServiceError maps service errors onto REST statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var catErr *catalog.ValidationError
	switch {
	case payments.IsValidation(err), errors.As(err, &catErr):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, payments.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
