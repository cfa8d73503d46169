package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/procurehq/sourcedex/internal/domain"
)

// errorCode is the machine-readable error discriminator in API responses.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeRequestNotFound   errorCode = "request_not_found"
	codeNoProviders       errorCode = "no_providers"
	codeRateLimited       errorCode = "rate_limited"
	codePersistenceFailed errorCode = "persistence_failed"
	codeInternalError     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidIntent,
		domain.ErrRequestNotFound,
		domain.ErrNoProviders,
		domain.ErrRateLimited,
		domain.ErrPersistence,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
