package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureWithinLimit(t *testing.T) {
	owner := uuid.New()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	daily := models.PeriodCeilings{models.PeriodDaily: decimal.NewFromInt(100)}

	t.Run("usage equal to the ceiling passes", func(t *testing.T) {
		history := []Usage{{Amount: usd(60), At: now.Add(-time.Hour)}}
		assert.NoError(t, EnsureWithinLimit(owner, models.LimitDeposit, usd(40), daily, history, now))
	})

	t.Run("usage over the ceiling fails", func(t *testing.T) {
		history := []Usage{{Amount: usd(60), At: now.Add(-time.Hour)}}
		err := EnsureWithinLimit(owner, models.LimitDeposit, usd(41), daily, history, now)

		var exceeded *LimitExceededError
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, owner, exceeded.OwnerID)
		assert.True(t, exceeded.Usage.Equal(decimal.NewFromInt(101)))
		assert.True(t, exceeded.Ceiling.Equal(decimal.NewFromInt(100)))
	})

	t.Run("history outside the window is ignored", func(t *testing.T) {
		history := []Usage{
			{Amount: usd(90), At: now.Add(-24 * time.Hour)},
			{Amount: usd(90), At: now.Add(-25 * time.Hour)},
		}
		assert.NoError(t, EnsureWithinLimit(owner, models.LimitDeposit, usd(100), daily, history, now))
	})

	t.Run("debits count by magnitude", func(t *testing.T) {
		history := []Usage{{Amount: usd(-70), At: now.Add(-time.Minute)}}
		assert.ErrorIs(t, EnsureWithinLimit(owner, models.LimitWithdraw, usd(-31), daily, history, now), ErrLimitExceeded)
	})

	t.Run("other currencies are ignored", func(t *testing.T) {
		history := []Usage{{Amount: models.AmountOf(models.CurrencyNGN, 1000), At: now.Add(-time.Minute)}}
		assert.NoError(t, EnsureWithinLimit(owner, models.LimitDeposit, usd(100), daily, history, now))
	})

	t.Run("per transaction ceiling ignores history", func(t *testing.T) {
		ceilings := models.PeriodCeilings{models.PeriodPerTransaction: decimal.NewFromInt(50)}
		history := []Usage{{Amount: usd(1000), At: now}}
		assert.NoError(t, EnsureWithinLimit(owner, models.LimitPurchase, usd(50), ceilings, history, now))

		err := EnsureWithinLimit(owner, models.LimitPurchase, usd(51), ceilings, nil, now)
		var exceeded *LimitExceededError
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, models.PeriodPerTransaction, exceeded.Period)
	})

	t.Run("shortest period is reported first", func(t *testing.T) {
		ceilings := models.PeriodCeilings{
			models.PeriodMonthly: decimal.NewFromInt(10),
			models.PeriodWeekly:  decimal.NewFromInt(10),
			models.PeriodDaily:   decimal.NewFromInt(10),
		}
		err := EnsureWithinLimit(owner, models.LimitPurchase, usd(11), ceilings, nil, now)
		var exceeded *LimitExceededError
		require.True(t, errors.As(err, &exceeded))
		assert.Equal(t, models.PeriodDaily, exceeded.Period)
	})

	t.Run("no ceilings", func(t *testing.T) {
		assert.NoError(t, EnsureWithinLimit(owner, models.LimitPurchase, usd(1_000_000), nil, nil, now))
	})
}

func TestLimitService_UpdateBusinessLimit(t *testing.T) {
	f := newFixture(t)

	t.Run("replaces the ceilings", func(t *testing.T) {
		limits := models.Limits{models.CurrencyUSD: {models.LimitDeposit: {models.PeriodWeekly: decimal.NewFromInt(7)}}}
		updated, err := f.svc.Limits.UpdateBusinessLimit(f.ctx, f.businessID, limits)
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

		stored, err := f.svc.Limits.RetrieveBusinessLimit(f.ctx, f.businessID)
		require.NoError(t, err)
		assert.Nil(t, stored.Limits.For(models.CurrencyUSD, models.LimitWithdraw))
		assert.True(t, stored.Limits.For(models.CurrencyUSD, models.LimitDeposit)[models.PeriodWeekly].Equal(decimal.NewFromInt(7)))
	})

	invalid := map[string]models.Limits{
		"purchase limits":  {models.CurrencyUSD: {models.LimitPurchase: {models.PeriodDaily: decimal.NewFromInt(1)}}},
		"unknown period":   {models.CurrencyUSD: {models.LimitDeposit: {models.LimitPeriod("HOURLY"): decimal.NewFromInt(1)}}},
		"negative ceiling": {models.CurrencyUSD: {models.LimitDeposit: {models.PeriodDaily: decimal.NewFromInt(-1)}}},
	}
	for name, limits := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Limits.UpdateBusinessLimit(f.ctx, f.businessID, limits)
			assert.ErrorIs(t, err, ErrInvalidLimitConfig)
		})
	}

	t.Run("unknown business", func(t *testing.T) {
		_, err := f.svc.Limits.UpdateBusinessLimit(f.ctx, uuid.New(), models.Limits{})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("business without a limit row is not checked", func(t *testing.T) {
		allocation, err := f.svc.Accounts.CreateAccount(f.ctx, uuid.New(), models.AccountTypeAllocation, uuid.New(), models.CurrencyUSD)
		require.NoError(t, err)

		_, err = f.svc.Adjustments.DepositFunds(f.ctx, allocation.BusinessID, allocation.ID, usd(50_000), false)
		assert.NoError(t, err)
	})
}

func TestLimitService_UpdateTransactionLimit(t *testing.T) {
	f := newFixture(t)
	card, _ := f.newCard("4111111111111111", usd(10))

	t.Run("only purchase limits", func(t *testing.T) {
		_, err := f.svc.Limits.UpdateTransactionLimit(f.ctx, f.businessID, models.TransactionLimitCard, card.ID, TransactionLimitUpdate{
			Limits: models.Limits{models.CurrencyUSD: {models.LimitDeposit: {models.PeriodDaily: decimal.NewFromInt(1)}}},
		})
		assert.ErrorIs(t, err, ErrInvalidLimitConfig)
	})

	t.Run("controls are replaced", func(t *testing.T) {
		_, err := f.svc.Limits.UpdateTransactionLimit(f.ctx, f.businessID, models.TransactionLimitCard, card.ID, TransactionLimitUpdate{
			DisabledMccGroups: models.StringSet{"GAMBLING"},
		})
		require.NoError(t, err)
		updated, err := f.svc.Limits.UpdateTransactionLimit(f.ctx, f.businessID, models.TransactionLimitCard, card.ID, TransactionLimitUpdate{
			DisabledTransactionChannels: models.StringSet{"ATM"},
		})
		require.NoError(t, err)
		assert.False(t, updated.DisabledMccGroups.Contains("GAMBLING"))
		assert.True(t, updated.DisabledTransactionChannels.Contains("ATM"))
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := f.svc.Limits.UpdateTransactionLimit(f.ctx, f.businessID, models.TransactionLimitCard, uuid.New(), TransactionLimitUpdate{})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}
