package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/infra/logging"
)

const maxBodyBytes = 1 << 20

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeOK wraps fields in a success envelope.
func writeOK(w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError maps err to a status and a stable error_code. Infrastructure
// failures are logged and reported as "internal".
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	msg, code := err.Error(), domain.CodeOf(err)
	if status == http.StatusInternalServerError {
		l := logging.With(r.Context(), logger)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg, code = "internal error", "internal"
	}
	writeJSON(w, status, envelope{"success": false, "error": msg, "error_code": code})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrInvalidInput:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrGenerationExhausted:
		return http.StatusServiceUnavailable
	case domain.ErrUnauthorized:
		if errors.Is(err, domain.ErrMissingCapability) || errors.Is(err, domain.ErrInvalidCredentials) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.Error{Kind: domain.ErrInvalidInput, Code: "invalid_body", Msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}
