// Package handlers implements the HTTP endpoints of the sync server: the
// pull/push surface, device registration, the conflict ledger, and the
// health and reporting endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/timeutil"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

// writeSuccess wraps data in the standard success envelope.
func writeSuccess(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   message,
		"data":      data,
		"timestamp": timeutil.Now(),
	})
}

// writeError maps an error to its HTTP status and the standard error
// envelope. Wrapped causes surface as details.
func writeError(w http.ResponseWriter, err error) {
	body := map[string]any{
		"error":     true,
		"message":   err.Error(),
		"timestamp": timeutil.Now(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if appErr.Err != nil {
			body["details"] = appErr.Err.Error()
		}
	}
	writeJSON(w, statusFor(apperrors.CodeOf(err)), body)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrInvalidRequest, apperrors.ErrRecordInvalid, apperrors.ErrTableNotAllowed:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NotFound is the JSON 404 for unrouted paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":     true,
		"message":   "Endpoint not found",
		"timestamp": timeutil.Now(),
	})
}
