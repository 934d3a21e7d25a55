package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectAdjustment(t *testing.T) {
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	account := &models.Account{ID: uuid.New(), BusinessID: uuid.New(), Type: models.AccountTypeCard, OwnerID: uuid.New()}
	adj := &models.Adjustment{ID: uuid.New(), Type: models.AdjustmentDeposit, Amount: usd(100), EffectiveDate: now}

	t.Run("settled adjustment is one processed row", func(t *testing.T) {
		rows := ProjectAdjustment(account, adj, nil, ActivityDetail{Notes: "payroll"})
		require.Len(t, rows, 1)
		assert.Equal(t, models.ActivityProcessed, rows[0].Status)
		assert.Equal(t, models.ActivityBankDeposit, rows[0].Type)
		assert.Equal(t, adj.ID, *rows[0].AdjustmentID)
		assert.Equal(t, account.OwnerID, *rows[0].CardID)
		assert.Equal(t, "payroll", rows[0].Notes)
		assert.True(t, Visible(&rows[0], now))
	})

	t.Run("held deposit switches from pending to processed at expiration", func(t *testing.T) {
		hold := &models.Hold{ID: uuid.New(), ExpirationDate: now.Add(48 * time.Hour)}
		rows := ProjectAdjustment(account, adj, hold, ActivityDetail{})
		require.Len(t, rows, 2)

		pending, processed := rows[0], rows[1]
		assert.Equal(t, models.ActivityPending, pending.Status)
		assert.Equal(t, models.ActivityProcessed, processed.Status)
		assert.Equal(t, hold.ID, *pending.HoldID)
		assert.Equal(t, hold.ID, *processed.HoldID)

		for _, at := range []time.Time{now, hold.ExpirationDate.Add(-time.Second)} {
			assert.True(t, Visible(&pending, at))
			assert.False(t, Visible(&processed, at))
		}
		later := hold.ExpirationDate.Add(time.Second)
		assert.False(t, Visible(&pending, later))
		assert.True(t, Visible(&processed, later))
	})

	t.Run("unmapped adjustment types fall back to manual", func(t *testing.T) {
		rows := ProjectAdjustment(account, &models.Adjustment{ID: uuid.New(), Type: "UNKNOWN", Amount: usd(1), EffectiveDate: now}, nil, ActivityDetail{})
		assert.Equal(t, models.ActivityManual, rows[0].Type)
	})
}

func TestProjectHoldAndDecline(t *testing.T) {
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	allocationID := uuid.New()
	account := &models.Account{ID: uuid.New(), BusinessID: uuid.New(), Type: models.AccountTypeAllocation, OwnerID: allocationID}

	hold := &models.Hold{ID: uuid.New(), Amount: usd(20), CreatedAt: now, ExpirationDate: now.Add(time.Hour)}
	row := ProjectHold(account, hold, ActivityDetail{MerchantName: "Corner Shop"})
	assert.Equal(t, models.ActivityPending, row.Status)
	assertAmount(t, usd(-20), row.Amount)
	assert.Equal(t, allocationID, *row.AllocationID)
	assert.Equal(t, hold.ExpirationDate, *row.HideAfter)

	msg := &models.NetworkMessage{Amount: usd(50), DeclineReason: models.DeclineLimitExceeded, CreatedAt: now}
	declined := ProjectDecline(account, msg, ActivityDetail{})
	assert.Equal(t, models.ActivityDeclined, declined.Status)
	assert.Equal(t, models.DeclineLimitExceeded, declined.DeclineReason)
	assertAmount(t, usd(-50), declined.Amount)
	assert.Nil(t, declined.HideAfter)

	reversal := &models.NetworkMessage{Amount: usd(20), CreatedAt: now.Add(time.Minute)}
	reversed := ProjectReversal(account, hold, reversal, ActivityDetail{})
	assert.Equal(t, models.ActivityReversed, reversed.Status)
	assertAmount(t, usd(20), reversed.Amount)
	assert.Equal(t, hold.ID, *reversed.HoldID)
	assert.Equal(t, reversal.CreatedAt, reversed.ActivityTime)
	assert.Nil(t, reversed.HideAfter)
}

func TestActivityService_FindActivity(t *testing.T) {
	f := newFixture(t)
	allocation, err := f.svc.Accounts.CreateAccount(f.ctx, f.businessID, models.AccountTypeAllocation, uuid.New(), models.CurrencyUSD)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.deposit(f.business.ID, usd(10))
		f.clock.Advance(time.Minute)
	}
	_, err = f.svc.Adjustments.ReallocateFunds(f.ctx, f.businessID, f.business.ID, allocation.ID, usd(20))
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		rows := f.visibleActivity(models.ActivityFilter{})
		require.Len(t, rows, 7)
		for i := 1; i < len(rows); i++ {
			assert.False(t, rows[i].ActivityTime.After(rows[i-1].ActivityTime))
		}
		assert.Equal(t, models.ActivityReallocate, rows[0].Type)
	})

	t.Run("pages", func(t *testing.T) {
		first := f.visibleActivity(models.ActivityFilter{PageSize: 3})
		second := f.visibleActivity(models.ActivityFilter{PageSize: 3, PageNumber: 1})
		third := f.visibleActivity(models.ActivityFilter{PageSize: 3, PageNumber: 2})
		beyond := f.visibleActivity(models.ActivityFilter{PageSize: 3, PageNumber: 3})
		assert.Len(t, first, 3)
		assert.Len(t, second, 3)
		assert.Len(t, third, 1)
		assert.Empty(t, beyond)
		assert.NotEqual(t, first[0].ID, second[0].ID)
	})

	t.Run("filters", func(t *testing.T) {
		assert.Len(t, f.visibleActivity(models.ActivityFilter{AllocationID: &allocation.OwnerID}), 1)
		assert.Len(t, f.visibleActivity(models.ActivityFilter{Type: models.ActivityBankDeposit}), 5)

		from := f.clock.Now().Add(-150 * time.Second)
		assert.Len(t, f.visibleActivity(models.ActivityFilter{Type: models.ActivityBankDeposit, From: &from}), 2)
	})

	t.Run("other businesses see nothing", func(t *testing.T) {
		rows, err := f.svc.Activity.FindActivity(f.ctx, uuid.New(), models.ActivityFilter{})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}
