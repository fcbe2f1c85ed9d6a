package handler

import (
	"errors"
	"net/http"

	"github.com/sakif/devconnect/internal/apperror"
)

// statusFor maps a domain error to an HTTP status code. The service layer
// speaks apperror sentinels; only this file knows what they mean in HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// renderError shows the error page with the right status. Internal errors
// keep their details out of the response — the raw error goes to the log,
// the browser gets a generic message.
func (rn *Renderer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	message := "Something went wrong."
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		rn.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}

	// Headers must be set before the status line goes out.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	rn.Render(w, r, "error", map[string]any{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

// fieldError extracts the (field, message) pair from a validation error so
// forms can re-render with the message next to the offending input.
// Returns ok = false for anything that isn't a validation failure.
func fieldError(err error) (field, message string, ok bool) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
		return appErr.Field, appErr.Message, true
	}
	return "", "", false
}
