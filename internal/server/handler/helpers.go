// Package handler implements the REST surface: team management, pool upload
// and selection, snapshot pulls for reconnecting clients, and the destructive
// admin clears.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// validate is the shared validator instance for request payloads.
var validate = validator.New()

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a domain sentinel onto an HTTP status and emits the
// error kind alongside the message.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrTeamNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTeamExists),
		errors.Is(err, domain.ErrItemSold),
		errors.Is(err, domain.ErrBidAlreadyOpen),
		errors.Is(err, domain.ErrNoActiveBid),
		errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrConsistency):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLockHeld):
		status = http.StatusLocked
	}
	writeJSON(w, status, map[string]string{
		"kind":  domain.ErrorKind(err),
		"error": err.Error(),
	})
}

// decodeJSON reads a JSON body into dst and runs struct validation. It writes
// the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer io.Copy(io.Discard, body)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
