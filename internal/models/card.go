package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card is an issued card funded from an allocation through its own account
type Card struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BusinessID   uuid.UUID `json:"business_id" db:"business_id"`
	AllocationID uuid.UUID `json:"allocation_id" db:"allocation_id"`
	AccountID    uuid.UUID `json:"account_id" db:"account_id"`
	CardNumber   string    `json:"-" db:"card_number"`
	LastFour     string    `json:"last_four" db:"last_four"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CardStatus represents card status
const (
	CardStatusActive   = "active"
	CardStatusInactive = "inactive"
	CardStatusBlocked  = "blocked"
	CardStatusLost     = "lost"
	CardStatusExpired  = "expired"
)

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
