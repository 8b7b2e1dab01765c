package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidCode      = errors.New("invalid code")
	ErrNoActiveSession  = errors.New("no active session")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPartialCascade   = errors.New("partial cascade failure")
)

type AppError struct {
	Err     error  // sentinel, for errors.Is
	Message string // human-readable, safe to show to the caller
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func InvalidInput(field, message string) *AppError {
	return &AppError{
		Err:     ErrInvalidInput,
		Message: message,
		Field:   field,
	}
}

// InvalidCode indicates a join code that resolves to no household.
func InvalidCode(code string) *AppError {
	return &AppError{
		Err:     ErrInvalidCode,
		Message: fmt.Sprintf("household code %q is not valid", code),
	}
}

func NoActiveSession() *AppError {
	return &AppError{
		Err:     ErrNoActiveSession,
		Message: "operation requires an authenticated session",
	}
}

// StoreUnavailable wraps a transport or backend failure. The underlying
// error is preserved so callers can log the cause while showing Message.
func StoreUnavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, cause),
		Message: fmt.Sprintf("storage operation %s failed", op),
	}
}

// PartialCascade reports a category delete whose product fan-out completed
// but whose category removal did not. The category may still exist with
// orphaned-looking products pending a retry; callers must surface this
// distinctly from a plain failure.
type PartialCascade struct {
	CategoryID      string
	ProductsDeleted int64
	Cause           error
}

func (e *PartialCascade) Error() string {
	return fmt.Sprintf("category %s: %d products deleted but category removal failed: %v",
		e.CategoryID, e.ProductsDeleted, e.Cause)
}

func (e *PartialCascade) Unwrap() error {
	return ErrPartialCascade
}
