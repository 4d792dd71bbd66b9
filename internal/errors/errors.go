// Package errors defines the error taxonomy used across the price tracker:
// every failure surfaced to a client is a CategorizedError carrying its HTTP
// status, a stable code and a message.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/price-tracker/internal/types"
)

// Category represents the category of an error
type Category string

const (
	// CategoryValidation represents malformed or missing input (400)
	CategoryValidation Category = "validation"
	// CategoryAuthentication represents missing or invalid credentials (401)
	CategoryAuthentication Category = "authentication"
	// CategoryAuthorization represents insufficient privileges (403)
	CategoryAuthorization Category = "authorization"
	// CategoryNotFound represents unknown resources (404)
	CategoryNotFound Category = "not_found"
	// CategoryConflict represents uniqueness violations (409)
	CategoryConflict Category = "conflict"
	// CategoryRateLimit represents throttled clients (429)
	CategoryRateLimit Category = "rate_limit"
	// CategorySystem represents everything else (500)
	CategorySystem Category = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   Category
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire-level ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewValidationError creates a 400 error for a malformed parameter or body
func NewValidationError(param, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewBadRequestError creates a 400 error with a free-form message
func NewBadRequestError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    message,
	}
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
	}
}

// NewNotFoundError creates a 404 error for a missing resource
func NewNotFoundError(resource string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
	}
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// NewInternalError creates a 500 error wrapping its cause. The cause is
// logged, never serialized to clients.
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Postgres SQLSTATE codes used for classification. Structured codes replace
// matching on error message text.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// FromDatabase classifies a database error into the taxonomy. Unique
// violations map to conflict, foreign key violations to validation (a bad
// reference is client input), no-rows to not found, everything else to a
// system error.
func FromDatabase(err error, resource string) *CategorizedError {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFoundError(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &CategorizedError{
				Category:   CategoryConflict,
				StatusCode: http.StatusConflict,
				Code:       "ALREADY_EXISTS",
				Message:    fmt.Sprintf("%s already exists", resource),
				Cause:      err,
			}
		case pgForeignKeyViolation:
			return &CategorizedError{
				Category:   CategoryValidation,
				StatusCode: http.StatusBadRequest,
				Code:       "INVALID_REFERENCE",
				Message:    "invalid reference to related resource",
				Cause:      err,
			}
		case pgCheckViolation:
			return &CategorizedError{
				Category:   CategoryValidation,
				StatusCode: http.StatusBadRequest,
				Code:       "CONSTRAINT_VIOLATION",
				Message:    "value violates a database constraint",
				Cause:      err,
			}
		}
	}

	return NewInternalError("database operation failed", err)
}

// AsCategorized extracts a CategorizedError from an error chain, or wraps the
// error as an internal error.
func AsCategorized(err error) *CategorizedError {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return NewInternalError("an internal error occurred", err)
}
