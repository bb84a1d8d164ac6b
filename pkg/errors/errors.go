package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCharacters = errors.New("invalid characters")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrInvalidWord       = errors.New("invalid word")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInternal          = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidDocument):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCharacters),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrInvalidWord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
