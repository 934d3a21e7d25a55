// Package store defines the persistence contract of the ledger.
//
// Every ledger-mutating operation runs inside Store.WithTx so that all postings of a
// journal entry, the adjustments referencing them and any coupled hold transition commit
// together or not at all. Journal entries, postings and adjustments are append-only: the
// contract has no update or delete for them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrOptimisticLock is returned when an account version moved underneath a balance write
	ErrOptimisticLock = errors.New("optimistic lock failed")
	// ErrDuplicate is returned on a unique constraint violation
	ErrDuplicate = errors.New("duplicate record")
)

// Store opens units of work. Tx methods called on the Store directly run outside a transaction.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// AdjustmentQuery selects adjustments for limit evaluation and reporting
type AdjustmentQuery struct {
	BusinessID *uuid.UUID
	AccountID  *uuid.UUID
	Types      []models.AdjustmentType
	From       *time.Time
	To         *time.Time
}

// Tx is the set of operations available inside a unit of work
type Tx interface {
	InsertLedgerAccount(ctx context.Context, la *models.LedgerAccount) error
	GetLedgerAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error)
	// EnsureLedgerAccount inserts la unless a ledger account with its id already exists
	EnsureLedgerAccount(ctx context.Context, la *models.LedgerAccount) error

	InsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	GetJournalEntry(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error)

	InsertAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByOwner(ctx context.Context, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error)
	// LockAccount reads the account and holds its row lock until the unit of work ends
	LockAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// UpdateAccountBalance writes a new ledger balance if the version still matches
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance models.Amount, version int) error

	InsertAdjustment(ctx context.Context, adjustment *models.Adjustment) error
	GetAdjustment(ctx context.Context, id uuid.UUID) (*models.Adjustment, error)
	ListAdjustments(ctx context.Context, q AdjustmentQuery) ([]models.Adjustment, error)

	InsertHold(ctx context.Context, hold *models.Hold) error
	GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error)
	ListPlacedHolds(ctx context.Context, accountID uuid.UUID, now time.Time) ([]models.Hold, error)
	FindPlacedHoldByRef(ctx context.Context, accountID uuid.UUID, networkRef string) (*models.Hold, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Hold, error)
	// TransitionHold moves a hold from one status to another and reports whether it did.
	// It is a compare-and-swap: nothing changes when the hold is no longer in from.
	TransitionHold(ctx context.Context, id uuid.UUID, from, to models.HoldStatus, at time.Time) (bool, error)

	InsertBusinessLimit(ctx context.Context, limit *models.BusinessLimit) error
	GetBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error)
	// LockBusinessLimit serializes limit checks for one business
	LockBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error)
	UpdateBusinessLimit(ctx context.Context, limit *models.BusinessLimit) error

	InsertTransactionLimit(ctx context.Context, limit *models.TransactionLimit) error
	GetTransactionLimit(ctx context.Context, businessID uuid.UUID, typ models.TransactionLimitType, ownerID uuid.UUID) (*models.TransactionLimit, error)
	UpdateTransactionLimit(ctx context.Context, limit *models.TransactionLimit) error

	InsertCard(ctx context.Context, card *models.Card) error
	GetCardByNumber(ctx context.Context, cardNumber string) (*models.Card, error)

	InsertNetworkMessage(ctx context.Context, msg *models.NetworkMessage) error
	GetNetworkMessage(ctx context.Context, id uuid.UUID) (*models.NetworkMessage, error)

	InsertActivity(ctx context.Context, activity *models.AccountActivity) error
	// ResolveHoldActivity ends the pending rows of a hold at at and reveals its
	// processed rows from at if they were scheduled to appear later
	ResolveHoldActivity(ctx context.Context, holdID uuid.UUID, at time.Time) error
	FindActivity(ctx context.Context, businessID uuid.UUID, filter models.ActivityFilter, now time.Time) ([]models.AccountActivity, error)
}
