package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor maps a service error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simpleasset.ErrCompensationFailure):
		return http.StatusInternalServerError, "compensation_failure"
	case errors.Is(err, simpleasset.ErrDanglingRow):
		return http.StatusInternalServerError, "dangling_row"
	case errors.Is(err, simpleasset.ErrAuthentication):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, simpleasset.ErrTenantResolution):
		return http.StatusForbidden, "tenant_unresolved"
	case errors.Is(err, simpleasset.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown_category"
	case errors.Is(err, simpleasset.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, simpleasset.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, simpleasset.ErrStorageWrite):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, simpleasset.ErrMetadataWrite):
		return http.StatusServiceUnavailable, "metadata_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{
		Code:      code,
		Message:   err.Error(),
		Retryable: simpleasset.IsRetryable(err),
	}

	var verr *simpleasset.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
		if status == http.StatusInternalServerError {
			resp.Message = http.StatusText(status)
		}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, field, reason string) {
	writeError(w, r, &simpleasset.ValidationError{Field: field, Reason: reason})
}
