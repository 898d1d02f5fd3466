// Package respond writes JSON responses for the admin API. Error bodies
// never carry internal details: unsafe messages are logged and replaced.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"feedwatch/internal/domain/entity"
)

const genericMessage = "internal server error"

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code. A nil v writes no body.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response body", slog.Int("status_code", code), slog.Any("error", err))
	}
}

// Error writes err verbatim. Only for messages the handler built itself.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, errorBody{Error: err.Error()})
}

// clientSafe lists fragments of messages that may be shown to API clients.
var clientSafe = []string{"required", "invalid", "not found", "already exists", "must be", "cannot be", "unknown"}

// SafeError writes err when it is a validation or lookup failure and a
// generic message otherwise. 5xx bodies are always generic.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	if code < http.StatusInternalServerError && showable(err) {
		Error(w, code, err)
		return
	}
	slog.Error("request failed", slog.Int("code", code), slog.String("error", SanitizeError(err)))
	JSON(w, code, errorBody{Error: genericMessage})
}

func showable(err error) bool {
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range clientSafe {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// AppError pairs a client-facing message and status with the internal cause.
type AppError struct {
	UserMsg string
	Err     error
	Code    int
}

func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.UserMsg
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// Fail writes an AppError with its own status and message, logging the
// cause. Any other error goes through SafeError with code.
func Fail(w http.ResponseWriter, code int, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		SafeError(w, code, err)
		return
	}
	if appErr.Err != nil {
		slog.Warn("request rejected",
			slog.Int("code", appErr.Code),
			slog.String("reason", appErr.UserMsg),
			slog.String("error", SanitizeError(appErr.Err)))
	}
	JSON(w, appErr.Code, errorBody{Error: appErr.UserMsg})
}
