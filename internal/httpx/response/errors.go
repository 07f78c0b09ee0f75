package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"markdesk-server/internal/logger"
	"markdesk-server/internal/sentryx"
	"markdesk-server/internal/trash"
	"markdesk-server/internal/workspace"
)

var log = logger.WithComponent("HTTP")

// ErrorBody is the error envelope. Detail repeats Error for clients that read FastAPI-style bodies.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Error writes a standard JSON error envelope. 5xx responses are reported to Sentry.
func Error(w http.ResponseWriter, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		sentryx.CaptureMessage(sentry.LevelError, "http_error status=%d message=%s", statusCode, message)
	}
	JSON(w, statusCode, ErrorBody{Error: message, Detail: message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func InternalServerError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal Server Error")
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotConfigured),
		errors.Is(err, trash.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trash.ErrConflict):
		return http.StatusConflict
	case workspace.IsConfinement(err),
		errors.Is(err, workspace.ErrInvalidPath),
		errors.Is(err, trash.ErrInvalidOperation),
		errors.Is(err, workspace.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError writes err with the status StatusFor picks.
func ServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed: %v", err)
		sentryx.CaptureError(err, "service_error status=%d", status)
		JSON(w, status, ErrorBody{Error: err.Error(), Detail: err.Error()})
		return
	}
	if workspace.IsConfinement(err) {
		log.Warn("Rejected path: %v", err)
	}
	Error(w, status, err.Error())
}
