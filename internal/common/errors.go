package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")

	// ErrLedgerUnavailable marks a ledger that could not be opened at
	// startup; it is fatal, unlike the per-file failures below.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// Per-file failure classes, matched with errors.Is against the
	// error returned for a single intake.
	ErrConversionFailed = errors.New("conversion failed")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrCommitFailed     = errors.New("ledger commit failed")
	ErrLogAppendFailed  = errors.New("custody log append failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
