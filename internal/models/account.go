package models

import (
	"time"

	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypeBusiness   AccountType = "BUSINESS"
	AccountTypeAllocation AccountType = "ALLOCATION"
	AccountTypeCard       AccountType = "CARD"
)

// LedgerAccountType maps an owner account type to its ledger account type
func (t AccountType) LedgerAccountType() LedgerAccountType {
	switch t {
	case AccountTypeAllocation:
		return LedgerAccountAllocation
	case AccountTypeCard:
		return LedgerAccountCard
	default:
		return LedgerAccountBusiness
	}
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeBusiness, AccountTypeAllocation, AccountTypeCard:
		return true
	}
	return false
}

// Account is a business, allocation or card balance.
// LedgerBalance is a cached sum of settled postings, written under the row lock with
// Version used for optimistic locking. AvailableBalance is derived from active holds.
type Account struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	BusinessID       uuid.UUID   `json:"business_id" db:"business_id"`
	Type             AccountType `json:"type" db:"type"`
	OwnerID          uuid.UUID   `json:"owner_id" db:"owner_id"`
	LedgerAccountID  uuid.UUID   `json:"ledger_account_id" db:"ledger_account_id"`
	LedgerBalance    Amount      `json:"ledger_balance" db:"ledger_balance"`
	AvailableBalance Amount      `json:"available_balance"`
	Version          int         `json:"version" db:"version"`
	Holds            []Hold      `json:"-"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// Currency of the account, fixed at creation
func (a *Account) Currency() Currency {
	return a.LedgerBalance.Currency
}

// ApplyHolds sets Holds and recomputes AvailableBalance from those active at now
func (a *Account) ApplyHolds(holds []Hold, now time.Time) {
	a.Holds = holds
	available := a.LedgerBalance
	for _, h := range holds {
		if h.IsActive(now) && h.Amount.Currency == available.Currency {
			available = available.MustAdd(h.Amount.Negate())
		}
	}
	a.AvailableBalance = available
}
