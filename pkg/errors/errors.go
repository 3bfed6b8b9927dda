package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrImmutableEntry     = errors.New("anchor entries cannot be edited or deleted")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrLoanClosed         = errors.New("loan is closed")
	ErrInconsistentLedger = errors.New("ledger is inconsistent")
	ErrNotDisbursed       = errors.New("loan has not been disbursed")
	ErrAlreadyApproved    = errors.New("loan is already approved")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeImmutable    = "IMMUTABLE_ENTRY"
	ErrCodeInvalid      = "INVALID_AMOUNT"
	ErrCodeLoanClosed   = "LOAN_CLOSED"
	ErrCodeInconsistent = "INCONSISTENT_LEDGER"
	ErrCodeDatabase     = "DATABASE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapEntryNotFound(entryID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("ledger entry %s not found", entryID),
		ErrEntryNotFound,
	)
}

func WrapImmutableEntry(kind string) *BusinessError {
	return NewBusinessError(
		ErrCodeImmutable,
		fmt.Sprintf("%q is an anchor entry and cannot be modified", kind),
		ErrImmutableEntry,
	)
}

func WrapInvalidAmount(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalid,
		reason,
		ErrInvalidAmount,
	)
}

func WrapLoanClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanClosed,
		fmt.Sprintf("loan %s is fully paid and closed", loanID),
		ErrLoanClosed,
	)
}

// WrapInconsistentLedger marks a replay that drove a balance materially
// negative. The caller must abort its transaction; this is data corruption,
// never auto-corrected.
func WrapInconsistentLedger(loanID, detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeInconsistent,
		fmt.Sprintf("loan %s: %s", loanID, detail),
		ErrInconsistentLedger,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabase,
		"database operation failed",
		err,
	)
}
