package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityBankDeposit   ActivityType = "BANK_DEPOSIT"
	ActivityBankWithdraw  ActivityType = "BANK_WITHDRAWAL"
	ActivityReallocate    ActivityType = "REALLOCATE"
	ActivityNetworkAuth   ActivityType = "NETWORK_AUTHORIZATION"
	ActivityNetworkSettle ActivityType = "NETWORK_CAPTURE"
	ActivityNetworkRefund ActivityType = "NETWORK_REFUND"
	ActivityFee           ActivityType = "FEE"
	ActivityManual        ActivityType = "MANUAL"
)

type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "PENDING"
	ActivityProcessed ActivityStatus = "PROCESSED"
	ActivityDeclined  ActivityStatus = "DECLINED"
	ActivityReversed  ActivityStatus = "REVERSED"
)

// AccountActivity is a read-side feed row. VisibleAfter and HideAfter only
// affect what the feed shows, never balances.
type AccountActivity struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	BusinessID     uuid.UUID      `json:"business_id" db:"business_id"`
	AccountID      uuid.UUID      `json:"account_id" db:"account_id"`
	AllocationID   *uuid.UUID     `json:"allocation_id,omitempty" db:"allocation_id"`
	CardID         *uuid.UUID     `json:"card_id,omitempty" db:"card_id"`
	AdjustmentID   *uuid.UUID     `json:"adjustment_id,omitempty" db:"adjustment_id"`
	HoldID         *uuid.UUID     `json:"hold_id,omitempty" db:"hold_id"`
	CounterpartyID *uuid.UUID     `json:"counterparty_account_id,omitempty" db:"counterparty_account_id"`
	Type           ActivityType   `json:"type" db:"type"`
	Status         ActivityStatus `json:"status" db:"status"`
	ActivityTime   time.Time      `json:"activity_time" db:"activity_time"`
	Amount         Amount         `json:"amount" db:"amount"`
	MerchantName   string         `json:"merchant_name,omitempty" db:"merchant_name"`
	DeclineReason  DeclineReason  `json:"decline_reason,omitempty" db:"decline_reason"`
	Notes          string         `json:"notes,omitempty" db:"notes"`
	VisibleAfter   *time.Time     `json:"visible_after,omitempty" db:"visible_after"`
	HideAfter      *time.Time     `json:"hide_after,omitempty" db:"hide_after"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// IsVisible applies the display window at now
func (a *AccountActivity) IsVisible(now time.Time) bool {
	if a.HideAfter != nil && now.After(*a.HideAfter) {
		return false
	}
	if a.VisibleAfter != nil && now.Before(*a.VisibleAfter) {
		return false
	}
	return true
}

// ActivityFilter narrows an activity query; zero fields are ignored
type ActivityFilter struct {
	AccountID    *uuid.UUID
	AllocationID *uuid.UUID
	CardID       *uuid.UUID
	Type         ActivityType
	From         *time.Time
	To           *time.Time
	PageNumber   int
	PageSize     int
}
