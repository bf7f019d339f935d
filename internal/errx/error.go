package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// StoreErrorMessage describes settings store failures.
	StoreErrorMessage = "settings store operation failed"
	// TranscriptErrorMessage describes transcript archive failures.
	TranscriptErrorMessage = "transcript archive operation failed"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest reports invalid client input.
func BadRequest(err error) *AppError {
	return &AppError{
		Err:     err,
		Status:  http.StatusBadRequest,
		Message: err.Error(),
	}
}

// WrapStore wraps a settings store error. Missing keys map to 404.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return &AppError{Err: err, Status: http.StatusNotFound, Message: "setting not found"}
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusInternalServerError,
		Message: StoreErrorMessage,
	}
}

// WrapTranscript wraps a transcript repository error.
func WrapTranscript(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: TranscriptErrorMessage,
	}
}

// Status returns the HTTP status carried by err, or 500.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// SafeMessage returns the message that may be shown to API clients.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return SystemErrorMessage
}
