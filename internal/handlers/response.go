package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/middleware"
	"github.com/ruralpay/ledger/internal/services"
	"github.com/ruralpay/ledger/internal/store"
)

const maxBodyBytes = 1_048_576

var errMultipleObjects = errors.New("request body must only contain a single JSON object")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errMultipleObjects
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// statusFor maps the engine's error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case services.IsValidationError(err),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrCurrencyMismatch),
		errors.Is(err, services.ErrUnbalancedEntry),
		errors.Is(err, services.ErrInvalidLimitConfig),
		errors.Is(err, services.ErrInvalidLedgerAccountType),
		errors.Is(err, services.ErrUnsupportedMessageType),
		errors.Is(err, services.ErrIdMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrLimitExceeded),
		errors.Is(err, services.ErrHoldNotPlaced),
		errors.Is(err, services.ErrConcurrency),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, tag string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[%s] Internal error: %v", tag, err)
		message = "Internal server error"
	}
	services.SendErrorResponse(w, message, status, err)
}

// businessID reads the authenticated business, answering 401 when absent
func businessID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.BusinessIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return id, ok
}
