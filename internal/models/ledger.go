package models

import (
	"time"

	"github.com/google/uuid"
)

type LedgerAccountType string

const (
	LedgerAccountBusiness   LedgerAccountType = "BUSINESS"
	LedgerAccountAllocation LedgerAccountType = "ALLOCATION"
	LedgerAccountCard       LedgerAccountType = "CARD"
	LedgerAccountBank       LedgerAccountType = "BANK"
	LedgerAccountNetwork    LedgerAccountType = "NETWORK"
	LedgerAccountFee        LedgerAccountType = "FEE"
	LedgerAccountManual     LedgerAccountType = "MANUAL"
)

// IsOwnerType reports whether accounts of this type belong to a business, allocation or card.
// The remaining types are system accounts with one instance per currency.
func (t LedgerAccountType) IsOwnerType() bool {
	switch t {
	case LedgerAccountBusiness, LedgerAccountAllocation, LedgerAccountCard:
		return true
	}
	return false
}

// LedgerAccount is the accounting-side record backing an Account
type LedgerAccount struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	Type      LedgerAccountType `json:"type" db:"type"`
	Currency  Currency          `json:"currency" db:"currency"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// JournalEntry groups balanced postings. Never updated once written.
type JournalEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Postings  []Posting `json:"postings"`
}

// Posting moves Amount into (positive) or out of (negative) a ledger account
type Posting struct {
	ID              uuid.UUID `json:"id" db:"id"`
	JournalEntryID  uuid.UUID `json:"journal_entry_id" db:"journal_entry_id"`
	LedgerAccountID uuid.UUID `json:"ledger_account_id" db:"ledger_account_id"`
	Amount          Amount    `json:"amount" db:"amount"`
}

// PostingRequest is the caller-side shape of a posting before it is recorded
type PostingRequest struct {
	LedgerAccountID uuid.UUID
	Amount          Amount
}

// PostingFor returns the posting made against ledgerAccountID, if any
func (j *JournalEntry) PostingFor(ledgerAccountID uuid.UUID) (Posting, bool) {
	for _, p := range j.Postings {
		if p.LedgerAccountID == ledgerAccountID {
			return p, true
		}
	}
	return Posting{}, false
}
