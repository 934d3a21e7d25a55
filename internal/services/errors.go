package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount            = models.ErrInvalidAmount
	ErrCurrencyMismatch         = models.ErrCurrencyMismatch
	ErrOptimisticLock           = store.ErrOptimisticLock
	ErrUnbalancedEntry          = errors.New("unbalanced journal entry")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrLimitExceeded            = errors.New("limit exceeded")
	ErrRecordNotFound           = errors.New("record not found")
	ErrConcurrency              = errors.New("concurrent modification")
	ErrHoldNotPlaced            = errors.New("hold is not placed")
	ErrUnsupportedMessageType   = errors.New("unsupported network message type")
	ErrIdMismatch               = errors.New("id mismatch")
	ErrInvalidLedgerAccountType = errors.New("invalid ledger account type")
)

// InvalidAmountError is returned when an amount fails a sign, precision or currency check
type InvalidAmountError = models.AmountError

type UnbalancedEntryError struct {
	Reason string
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced journal entry: %s", e.Reason)
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

type InsufficientFundsError struct {
	AccountID uuid.UUID
	Available models.Amount
	Requested models.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in account %s: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type LimitExceededError struct {
	OwnerID   uuid.UUID
	LimitType models.LimitType
	Period    models.LimitPeriod
	Ceiling   decimal.Decimal
	Usage     decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s %s limit exceeded for %s: usage %s over ceiling %s",
		e.Period, e.LimitType, e.OwnerID, e.Usage, e.Ceiling)
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

type RecordNotFoundError struct {
	Table string
	ID    any
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Table, e.ID)
}

func (e *RecordNotFoundError) Unwrap() error { return ErrRecordNotFound }

type ConcurrencyError struct {
	Attempts int
	Err      error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConcurrencyError) Unwrap() []error { return []error{ErrConcurrency, e.Err} }

type UnsupportedMessageTypeError struct {
	Type models.NetworkMessageType
}

func (e *UnsupportedMessageTypeError) Error() string {
	return fmt.Sprintf("unsupported network message type %q", e.Type)
}

func (e *UnsupportedMessageTypeError) Unwrap() error { return ErrUnsupportedMessageType }

type IdMismatchError struct {
	Field    string
	Expected uuid.UUID
	Actual   uuid.UUID
}

func (e *IdMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

func (e *IdMismatchError) Unwrap() error { return ErrIdMismatch }

// notFound converts store.ErrNotFound into a RecordNotFoundError, passing other errors through
func notFound(err error, table string, id any) error {
	if errors.Is(err, store.ErrNotFound) {
		return &RecordNotFoundError{Table: table, ID: id}
	}
	return err
}
