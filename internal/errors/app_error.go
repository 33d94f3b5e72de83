package errors

import (
	"errors"
	"net/http"
)

// AppError is the single error currency of the cart core. Every failure the
// presentation layer can see is an AppError; Message is always safe to show
// to the user as-is.
type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAuthRequired   = "AUTH_REQUIRED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNetwork        = "NETWORK_ERROR"
	ErrCodeServerRejected = "SERVER_REJECTED"
	ErrCodeStorage        = "STORAGE_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

// AuthRequiredError is a precondition failure: the operation needs a bearer
// credential and none is present. Raised before any network attempt.
func AuthRequiredError(message string) *AppError {
	return NewAppError(ErrCodeAuthRequired, message, http.StatusUnauthorized)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NetworkError covers transport-level failures where no HTTP status was
// received at all.
func NetworkError(message string) *AppError {
	return NewAppError(ErrCodeNetwork, message, http.StatusServiceUnavailable)
}

// ServerRejectedError carries the server's own message for a non-2xx
// response, with the original HTTP status.
func ServerRejectedError(message string, statusCode int) *AppError {
	return NewAppError(ErrCodeServerRejected, message, statusCode)
}

func StorageError(message string) *AppError {
	return NewAppError(ErrCodeStorage, message, http.StatusInternalServerError)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}
