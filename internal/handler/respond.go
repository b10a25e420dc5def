package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"labelstation/internal/dto"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service"
	"labelstation/internal/service/dataset"
)

// MaxBodySize limits JSON request bodies; frames arrive base64 encoded.
const MaxBodySize = 32 << 20

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidLabel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrEmptyDataset):
		return http.StatusConflict
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with {status: "error", message}. Unexpected errors are
// logged and their details kept from the client.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		message = "Internal Server Error"
	}
	writeJSON(w, status, dto.StatusResponse{Status: "error", Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, model.ErrMalformedPayload)
	}
	return nil
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
