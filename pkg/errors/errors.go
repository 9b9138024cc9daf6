// Package errors defines the error envelope the HTTP API returns. Every
// failure that reaches a client is an AppError carrying a stable code; the
// status code is derived from that code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeUnsupportedMediaType   = "INVALID_CONTENT_TYPE"
	CodeInvalidAdjustment      = "INVALID_ADJUSTMENT"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeRouteNotFound          = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	CodeInvalidState           = "INVALID_STATE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout                = "TIMEOUT"
)

var statusByCode = map[string]int{
	CodeValidationError:        http.StatusBadRequest,
	CodeBadRequest:             http.StatusBadRequest,
	CodeUnsupportedMediaType:   http.StatusUnsupportedMediaType,
	CodeInvalidAdjustment:      http.StatusBadRequest,
	CodeNotFound:               http.StatusNotFound,
	CodeRouteNotFound:          http.StatusNotFound,
	CodeMethodNotAllowed:       http.StatusMethodNotAllowed,
	CodeInvalidState:           http.StatusConflict,
	CodeConcurrentModification: http.StatusConflict,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeInternalError:          http.StatusInternalServerError,
	CodeServiceUnavailable:     http.StatusServiceUnavailable,
	CodeTimeout:                http.StatusGatewayTimeout,
}

// AppError is an error with an API code, a client-facing message and
// optional per-field details
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets one detail entry
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap keeps cause for logging; it is never serialized
func (e *AppError) Wrap(cause error) *AppError {
	e.Err = cause
	return e
}

// IsClientError reports a 4xx
func (e *AppError) IsClientError() bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// New builds an AppError for a known code. Unknown codes map to 500.
func New(code, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func ErrValidation(message string) *AppError {
	return New(CodeValidationError, message)
}

// ErrValidationWithFields carries one detail per offending field
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	e := ErrValidation(message)
	for k, v := range fields {
		e.WithDetail(k, v)
	}
	return e
}

func ErrBadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

// ErrInvalidAdjustment rejects a correction that would drop on-hand below reserved
func ErrInvalidAdjustment(message string) *AppError {
	return New(CodeInvalidAdjustment, message)
}

func ErrNotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// ErrInvalidState reports an operation attempted in the wrong lifecycle phase
func ErrInvalidState(message string) *AppError {
	return New(CodeInvalidState, message)
}

// ErrConcurrentModification reports a lost race that survived every retry
func ErrConcurrentModification(message string) *AppError {
	return New(CodeConcurrentModification, message)
}

func ErrInsufficientStock(message string) *AppError {
	return New(CodeInsufficientStock, message)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return New(CodeInternalError, message)
}

func ErrServiceUnavailable(what string) *AppError {
	return New(CodeServiceUnavailable, what+" is temporarily unavailable")
}

func ErrTimeout(operation string) *AppError {
	return New(CodeTimeout, operation+" timed out")
}

// AsAppError finds an AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError returns err's AppError, or an internal error wrapping err
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
