package models

import (
	"time"

	"github.com/google/uuid"
)

type AdjustmentType string

const (
	AdjustmentDeposit         AdjustmentType = "DEPOSIT"
	AdjustmentWithdraw        AdjustmentType = "WITHDRAW"
	AdjustmentReallocate      AdjustmentType = "REALLOCATE"
	AdjustmentNetworkAuth     AdjustmentType = "NETWORK_AUTH"
	AdjustmentNetworkReversal AdjustmentType = "NETWORK_REVERSAL"
	AdjustmentServiceFee      AdjustmentType = "SERVICE_FEE"
	AdjustmentFee             AdjustmentType = "FEE"
	AdjustmentManual          AdjustmentType = "MANUAL"
)

type CreditOrDebit string

const (
	Credit CreditOrDebit = "CREDIT"
	Debit  CreditOrDebit = "DEBIT"
)

// Signed applies the direction to a positive amount
func (c CreditOrDebit) Signed(amount Amount) Amount {
	if c == Debit {
		return amount.Abs().Negate()
	}
	return amount.Abs()
}

// Adjustment is one settled posting seen from the owning account
type Adjustment struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	BusinessID      uuid.UUID      `json:"business_id" db:"business_id"`
	AccountID       uuid.UUID      `json:"account_id" db:"account_id"`
	LedgerAccountID uuid.UUID      `json:"ledger_account_id" db:"ledger_account_id"`
	JournalEntryID  uuid.UUID      `json:"journal_entry_id" db:"journal_entry_id"`
	PostingID       uuid.UUID      `json:"posting_id" db:"posting_id"`
	Type            AdjustmentType `json:"type" db:"type"`
	EffectiveDate   time.Time      `json:"effective_date" db:"effective_date"`
	Amount          Amount         `json:"amount" db:"amount"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}
