package models

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldPlaced   HoldStatus = "PLACED"
	HoldReleased HoldStatus = "RELEASED"
	HoldCaptured HoldStatus = "CAPTURED"
	HoldExpired  HoldStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed
func (s HoldStatus) IsTerminal() bool {
	return s != HoldPlaced
}

// Hold reserves Amount (always positive) of an account's available balance
type Hold struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	BusinessID     uuid.UUID  `json:"business_id" db:"business_id"`
	AccountID      uuid.UUID  `json:"account_id" db:"account_id"`
	Amount         Amount     `json:"amount" db:"amount"`
	Status         HoldStatus `json:"status" db:"status"`
	NetworkRef     string     `json:"network_ref,omitempty" db:"network_ref"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ExpirationDate time.Time  `json:"expiration_date" db:"expiration_date"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the hold reduces availability at now
func (h *Hold) IsActive(now time.Time) bool {
	return h.Status == HoldPlaced && !now.Before(h.CreatedAt) && now.Before(h.ExpirationDate)
}
