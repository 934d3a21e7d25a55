package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount(t *testing.T) {
	t.Run("rounds to the currency scale", func(t *testing.T) {
		a, err := ParseAmount(CurrencyUSD, "10.005")
		require.NoError(t, err)
		assert.Equal(t, "10.01 USD", a.String())
		assert.Equal(t, "7 JPY", NewAmount("JPY", decimal.RequireFromString("7.4")).String())
	})

	t.Run("json keeps whole minor units only", func(t *testing.T) {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(`{"currency":"USD","amount":"12.50"}`), &a))
		assert.True(t, a.Amount.Equal(decimal.RequireFromString("12.5")))

		require.NoError(t, json.Unmarshal([]byte(`{"currency":"JPY","amount":300}`), &a))
		assert.Equal(t, "300 JPY", a.String())

		for _, body := range []string{
			`{"currency":"USD","amount":"0.005"}`,
			`{"currency":"USD","amount":1.001}`,
			`{"currency":"JPY","amount":"1.5"}`,
		} {
			err := json.Unmarshal([]byte(body), &a)
			assert.ErrorIs(t, err, ErrInvalidAmount, body)
		}
	})

	t.Run("precision checks", func(t *testing.T) {
		half := Amount{Currency: CurrencyUSD, Amount: decimal.RequireFromString("0.005")}
		assert.ErrorIs(t, half.EnsureScale(), ErrInvalidAmount)
		assert.ErrorIs(t, half.EnsurePositive(), ErrInvalidAmount)
		assert.ErrorIs(t, half.EnsureNonNegative(), ErrInvalidAmount)
		assert.Contains(t, half.EnsureScale().Error(), "0.005 USD")

		assert.NoError(t, Amount{Currency: CurrencyUSD, Amount: decimal.RequireFromString("1.100")}.EnsureScale())
	})

	t.Run("arithmetic refuses mixed currencies", func(t *testing.T) {
		_, err := AmountOf(CurrencyUSD, 1).Add(AmountOf(CurrencyNGN, 1))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = AmountOf(CurrencyUSD, 1).IsGreaterThan(AmountOf(CurrencyNGN, 1))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("sign checks", func(t *testing.T) {
		var amountErr *AmountError
		err := ZeroAmount(CurrencyUSD).EnsurePositive()
		require.True(t, errors.As(err, &amountErr))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, ZeroAmount(CurrencyUSD).EnsureNonNegative())
		assert.Error(t, AmountOf(CurrencyUSD, -1).EnsureNonNegative())
	})

	t.Run("sum", func(t *testing.T) {
		total, err := SumAmounts(CurrencyUSD, AmountOf(CurrencyUSD, 5), AmountOf(CurrencyUSD, -2))
		require.NoError(t, err)
		assert.True(t, total.Equal(AmountOf(CurrencyUSD, 3)))

		_, err = SumAmounts(CurrencyUSD, AmountOf(CurrencyNGN, 5))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("direction", func(t *testing.T) {
		assert.True(t, Debit.Signed(AmountOf(CurrencyUSD, 4)).Equal(AmountOf(CurrencyUSD, -4)))
		assert.True(t, Credit.Signed(AmountOf(CurrencyUSD, -4)).Equal(AmountOf(CurrencyUSD, 4)))
	})
}

func TestAccount_ApplyHolds(t *testing.T) {
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	account := &Account{LedgerBalance: AmountOf(CurrencyUSD, 100)}

	holds := []Hold{
		{Status: HoldPlaced, Amount: AmountOf(CurrencyUSD, 30), CreatedAt: now.Add(-time.Hour), ExpirationDate: now.Add(time.Hour)},
		{Status: HoldPlaced, Amount: AmountOf(CurrencyUSD, 10), CreatedAt: now.Add(-time.Hour), ExpirationDate: now},
		{Status: HoldReleased, Amount: AmountOf(CurrencyUSD, 20), CreatedAt: now.Add(-time.Hour), ExpirationDate: now.Add(time.Hour)},
		{Status: HoldPlaced, Amount: AmountOf(CurrencyUSD, 5), CreatedAt: now.Add(time.Minute), ExpirationDate: now.Add(time.Hour)},
	}
	account.ApplyHolds(holds, now)

	assert.True(t, account.AvailableBalance.Equal(AmountOf(CurrencyUSD, 70)))
	assert.True(t, account.LedgerBalance.Equal(AmountOf(CurrencyUSD, 100)))
	assert.Len(t, account.Holds, 4)
}

func TestHoldStatus_IsTerminal(t *testing.T) {
	assert.False(t, HoldPlaced.IsTerminal())
	for _, s := range []HoldStatus{HoldReleased, HoldCaptured, HoldExpired} {
		assert.True(t, s.IsTerminal())
	}
}

func TestAccountActivity_IsVisible(t *testing.T) {
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	assert.True(t, (&AccountActivity{}).IsVisible(now))
	assert.True(t, (&AccountActivity{HideAfter: &later}).IsVisible(later))
	assert.False(t, (&AccountActivity{HideAfter: &now}).IsVisible(later))
	assert.False(t, (&AccountActivity{VisibleAfter: &later}).IsVisible(now))
	assert.True(t, (&AccountActivity{VisibleAfter: &later}).IsVisible(later))
}

func TestLimitsColumns(t *testing.T) {
	limits := DefaultBusinessLimits()
	value, err := limits.Value()
	require.NoError(t, err)

	var scanned Limits
	require.NoError(t, scanned.Scan(value))
	assert.True(t, scanned.For(CurrencyUSD, LimitDeposit)[PeriodDaily].Equal(decimal.NewFromInt(10_000)))
	assert.Nil(t, scanned.For(CurrencyNGN, LimitDeposit))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))

	var set StringSet
	require.NoError(t, set.Scan(`["ATM","ECOMMERCE"]`))
	assert.True(t, set.Contains("ATM"))
	assert.False(t, set.Contains("POS"))
}

func TestLimitPeriod(t *testing.T) {
	assert.Equal(t, 24*time.Hour, PeriodDaily.Duration())
	assert.Zero(t, PeriodPerTransaction.Duration())
	assert.False(t, LimitPeriod("HOURLY").Valid())
	assert.Equal(t, LedgerAccountCard, AccountTypeCard.LedgerAccountType())
	assert.False(t, LedgerAccountFee.IsOwnerType())
}
