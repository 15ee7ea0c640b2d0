package handlers

import (
	"errors"
	"net/http"

	"readquest/internal/content"
	"readquest/internal/logger"
	"readquest/internal/service"
)

// Error codes returned in the "error" field
const (
	CodeNotFound          = "not_found"
	CodeValidation        = "validation_error"
	CodeInvalidEvent      = "invalid_event"
	CodeInvalidAction     = "invalid_action"
	CodeInvalidInvitation = "invalid_invitation"
	CodeInsufficientData  = "insufficient_data"
	CodeGenerationFailed  = "generation_failed"
	CodeUpstream          = "upstream_error"
	CodeUpstreamBusy      = "upstream_unavailable"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
)

const internalMessage = "Internal server error"

// statusFor maps a service error to its HTTP status and error code.
// Transient upstream failures get 503 so clients can tell a retry may help;
// rejected or malformed generations stay 502.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, content.ErrUpstream) && content.IsTransient(err):
		return http.StatusServiceUnavailable, CodeUpstreamBusy
	case errors.Is(err, service.ErrBookNotFound), errors.Is(err, service.ErrQuizSessionNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrInvalidInvitation):
		return http.StatusNotFound, CodeInvalidInvitation
	case errors.Is(err, service.ErrInvalidEvent):
		return http.StatusBadRequest, CodeInvalidEvent
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest, CodeInvalidAction
	case errors.Is(err, service.ErrInsufficientData):
		return http.StatusUnprocessableEntity, CodeInsufficientData
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway, CodeGenerationFailed
	case errors.Is(err, content.ErrUpstream), errors.Is(err, content.ErrMalformedResponse):
		return http.StatusBadGateway, CodeUpstream
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, CodeForbidden
	}
	return http.StatusInternalServerError, CodeInternal
}

// respondWithError logs the failure and writes the mapped status. Internal
// errors never leak their text to the client.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			message = internalMessage
		}
	default:
		logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	WriteError(w, status, code, message)
}
