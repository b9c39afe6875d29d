// Package errors defines the sentinel errors shared by the CLI and the HTTP
// API, and how each maps to a response status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCatalogLoad     = errors.New("catalog load failed")
	ErrMalformedEntry  = errors.New("malformed catalog entry")
	ErrDiseaseNotFound = errors.New("disease not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrRemoteService   = errors.New("remote service error")
	ErrTimeout         = errors.New("operation timed out")
)

// AppError pins an explicit status and a client-safe message to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func New(sentinel error, status int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: status}
}

func Newf(sentinel error, status int, format string, args ...any) *AppError {
	return New(sentinel, status, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrDiseaseNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrRemoteService, http.StatusBadGateway},
	{ErrTimeout, http.StatusGatewayTimeout},
	{ErrCatalogLoad, http.StatusServiceUnavailable},
}

// HTTPStatusCode maps an error chain to the status the API responds with.
// An AppError anywhere in the chain wins; unknown errors are 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
