package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("validation error")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")

	// Inventory business-rule violations. None of these are transient;
	// they are surfaced to the operator, never retried.
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrExpiryNotImproved       = errors.New("expiry date not improved")
	ErrInvalidState            = errors.New("invalid workflow state")
	ErrRefundExceedsOrder      = errors.New("refund exceeds order total")
	ErrBatchGone               = errors.New("batch no longer exists")
	ErrNoOriginalPriceRecorded = errors.New("no original price recorded")
	ErrAlreadyGone             = errors.New("referent already removed")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       "TOKEN_EXPIRED",
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Inventory error constructors

// InsufficientStock is returned when a draw-down asks for more units than a
// batch (or a medicine's sellable batches combined) can supply.
func InsufficientStock(message string) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func InvalidQuantity(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidQuantity,
		Code:       "INVALID_QUANTITY",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ExpiryNotImproved is returned when a supplier-return replacement batch does
// not carry a strictly later expiry date than the batch it replaces.
func ExpiryNotImproved(message string) *AppError {
	return &AppError{
		Err:        ErrExpiryNotImproved,
		Code:       "EXPIRY_NOT_IMPROVED",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// InvalidState is returned when a workflow transition is attempted from a
// state that does not permit it.
func InvalidState(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidState,
		Code:       "INVALID_STATE",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func RefundExceedsOrder(message string) *AppError {
	return &AppError{
		Err:        ErrRefundExceedsOrder,
		Code:       "REFUND_EXCEEDS_ORDER",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// BatchGone is returned when a stock restoration targets a batch that was
// deleted (typically by an expired-alert cascade). The caller must surface it
// as a reconciliation error, never silently mint stock.
func BatchGone(message string) *AppError {
	return &AppError{
		Err:        ErrBatchGone,
		Code:       "BATCH_GONE",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NoOriginalPriceRecorded(message string) *AppError {
	return &AppError{
		Err:        ErrNoOriginalPriceRecorded,
		Code:       "NO_ORIGINAL_PRICE",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// AlreadyGone signals a no-op: the alert's referent was already cascaded
// away. Handlers report it with a message rather than an error status.
func AlreadyGone(message string) *AppError {
	return &AppError{
		Err:        ErrAlreadyGone,
		Code:       "ALREADY_GONE",
		Message:    message,
		StatusCode: http.StatusOK,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
