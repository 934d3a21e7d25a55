package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LimitType string

const (
	LimitDeposit  LimitType = "DEPOSIT"
	LimitWithdraw LimitType = "WITHDRAW"
	LimitPurchase LimitType = "PURCHASE"
)

type LimitPeriod string

const (
	PeriodPerTransaction LimitPeriod = "PER_TRANSACTION"
	PeriodDaily          LimitPeriod = "DAILY"
	PeriodWeekly         LimitPeriod = "WEEKLY"
	PeriodMonthly        LimitPeriod = "MONTHLY"
)

// Duration of the rolling window; zero for PER_TRANSACTION
func (p LimitPeriod) Duration() time.Duration {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func (p LimitPeriod) Valid() bool {
	switch p {
	case PeriodPerTransaction, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// PeriodCeilings maps a window to the maximum usage allowed inside it
type PeriodCeilings map[LimitPeriod]decimal.Decimal

// Limits is currency -> limit type -> period -> ceiling, stored as JSONB
type Limits map[Currency]map[LimitType]PeriodCeilings

// For returns the ceilings configured for a currency and type, nil if none
func (l Limits) For(currency Currency, limitType LimitType) PeriodCeilings {
	if l == nil {
		return nil
	}
	return l[currency][limitType]
}

// Value implements driver.Valuer for Limits
func (l Limits) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for Limits
func (l *Limits) Scan(value any) error {
	if value == nil {
		*l = Limits{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		s, isString := value.(string)
		if !isString {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}

	return json.Unmarshal(b, l)
}

// BusinessLimit holds bank-transfer ceilings for a business
type BusinessLimit struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"business_id" db:"business_id"`
	Limits     Limits    `json:"limits" db:"limits"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type TransactionLimitType string

const (
	TransactionLimitAllocation TransactionLimitType = "ALLOCATION"
	TransactionLimitCard       TransactionLimitType = "CARD"
)

// StringSet is a JSONB-backed list of strings
type StringSet []string

func (s StringSet) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer for StringSet
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// Scan implements sql.Scanner for StringSet
func (s *StringSet) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, isString := value.(string)
		if !isString {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(str)
	}
	return json.Unmarshal(b, (*[]string)(s))
}

// TransactionLimit holds spend ceilings for an allocation or card
type TransactionLimit struct {
	ID                          uuid.UUID            `json:"id" db:"id"`
	BusinessID                  uuid.UUID            `json:"business_id" db:"business_id"`
	Type                        TransactionLimitType `json:"type" db:"type"`
	OwnerID                     uuid.UUID            `json:"owner_id" db:"owner_id"`
	Limits                      Limits               `json:"limits" db:"limits"`
	DisabledMccGroups           StringSet            `json:"disabled_mcc_groups" db:"disabled_mcc_groups"`
	DisabledTransactionChannels StringSet            `json:"disabled_transaction_channels" db:"disabled_transaction_channels"`
	CreatedAt                   time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt                   time.Time            `json:"updated_at" db:"updated_at"`
}

// DefaultBusinessLimits are applied when a business is onboarded
func DefaultBusinessLimits() Limits {
	ceilings := func() PeriodCeilings {
		return PeriodCeilings{
			PeriodDaily:   decimal.NewFromInt(10_000),
			PeriodMonthly: decimal.NewFromInt(30_000),
		}
	}
	return Limits{
		CurrencyUSD: {
			LimitDeposit:  ceilings(),
			LimitWithdraw: ceilings(),
		},
	}
}
