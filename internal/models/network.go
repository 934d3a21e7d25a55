package models

import (
	"time"

	"github.com/google/uuid"
)

type NetworkMessageType string

const (
	PreAuthTransaction         NetworkMessageType = "PRE_AUTH_TRANSACTION"
	PreAuthTransactionAdvice   NetworkMessageType = "PRE_AUTH_TRANSACTION_ADVICE"
	FinancialTransaction       NetworkMessageType = "FINANCIAL_TRANSACTION"
	FinancialTransactionAdvice NetworkMessageType = "FINANCIAL_TRANSACTION_ADVICE"
	ReversalTransaction        NetworkMessageType = "REVERSAL_TRANSACTION"
	ReversalTransactionAdvice  NetworkMessageType = "REVERSAL_TRANSACTION_ADVICE"
	ServiceFeeTransaction      NetworkMessageType = "SERVICE_FEE_TRANSACTION"
)

type NetworkOutcome string

const (
	OutcomeHoldPlaced NetworkOutcome = "HOLD_PLACED"
	OutcomeSettled    NetworkOutcome = "SETTLED"
	OutcomeDeclined   NetworkOutcome = "DECLINED"
	OutcomeReversed   NetworkOutcome = "REVERSED"
	OutcomeNoAction   NetworkOutcome = "NO_ACTION"
)

type DeclineReason string

const (
	DeclineInsufficientFunds DeclineReason = "INSUFFICIENT_FUNDS"
	DeclineLimitExceeded     DeclineReason = "LIMIT_EXCEEDED"
	DeclineMccGroupDisabled  DeclineReason = "MCC_GROUP_DISABLED"
	DeclineChannelDisabled   DeclineReason = "TRANSACTION_CHANNEL_DISABLED"
)

// NetworkCommon is a card-network message after protocol decoding
type NetworkCommon struct {
	CardNumber           string             `json:"cardNumber" validate:"required"`
	NetworkMessageType   NetworkMessageType `json:"networkMessageType" validate:"required"`
	CreditOrDebit        CreditOrDebit      `json:"creditOrDebit" validate:"omitempty,oneof=CREDIT DEBIT"`
	RequestedAmount      Amount             `json:"requestedAmount"`
	NetworkRef           string             `json:"networkRef" validate:"max=64"`
	MerchantName         string             `json:"merchantName" validate:"max=140"`
	MerchantAddress      string             `json:"merchantAddress" validate:"max=256"`
	MerchantNumber       string             `json:"merchantNumber" validate:"max=32"`
	MerchantCategoryCode int                `json:"merchantCategoryCode" validate:"gte=0,lte=9999"`
	MccGroup             string             `json:"mccGroup,omitempty"`
	TransactionChannel   string             `json:"transactionChannel,omitempty"`
	Request              Metadata           `json:"request,omitempty"`
}

// CardRecord is a card resolved to its ledger coordinates
type CardRecord struct {
	CardID       uuid.UUID `json:"card_id" db:"id"`
	BusinessID   uuid.UUID `json:"business_id" db:"business_id"`
	AllocationID uuid.UUID `json:"allocation_id" db:"allocation_id"`
	AccountID    uuid.UUID `json:"account_id" db:"account_id"`
}

// NetworkMessage is the audit record written for every processed message
type NetworkMessage struct {
	ID                   uuid.UUID          `json:"id" db:"id"`
	BusinessID           uuid.UUID          `json:"business_id" db:"business_id"`
	AllocationID         uuid.UUID          `json:"allocation_id" db:"allocation_id"`
	AccountID            uuid.UUID          `json:"account_id" db:"account_id"`
	CardID               uuid.UUID          `json:"card_id" db:"card_id"`
	NetworkRef           string             `json:"network_ref" db:"network_ref"`
	Type                 NetworkMessageType `json:"type" db:"type"`
	Amount               Amount             `json:"amount" db:"amount"`
	Outcome              NetworkOutcome     `json:"outcome" db:"outcome"`
	DeclineReason        DeclineReason      `json:"decline_reason,omitempty" db:"decline_reason"`
	HoldID               *uuid.UUID         `json:"hold_id,omitempty" db:"hold_id"`
	AdjustmentID         *uuid.UUID         `json:"adjustment_id,omitempty" db:"adjustment_id"`
	MerchantName         string             `json:"merchant_name" db:"merchant_name"`
	MerchantAddress      string             `json:"merchant_address" db:"merchant_address"`
	MerchantNumber       string             `json:"merchant_number" db:"merchant_number"`
	MerchantCategoryCode int                `json:"merchant_category_code" db:"merchant_category_code"`
	Request              Metadata           `json:"request" db:"request"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
}
