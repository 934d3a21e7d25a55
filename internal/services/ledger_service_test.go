package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
	"github.com/ruralpay/ledger/internal/store/memory"
	"github.com/ruralpay/ledger/internal/store/postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Record(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	ledger := NewLedgerService(clock.Now)
	st := memory.NewMemoryStore()

	var a, b, c uuid.UUID
	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		for _, id := range []*uuid.UUID{&a, &b, &c} {
			*id = uuid.New()
			err := tx.InsertLedgerAccount(ctx, &models.LedgerAccount{ID: *id, Type: models.LedgerAccountBusiness, Currency: models.CurrencyUSD})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	t.Run("balanced entry", func(t *testing.T) {
		var entry *models.JournalEntry
		err := st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			entry, err = ledger.Record(ctx, tx, []models.PostingRequest{
				{LedgerAccountID: a, Amount: usd(-30)},
				{LedgerAccountID: b, Amount: usd(10)},
				{LedgerAccountID: c, Amount: usd(20)},
			})
			return err
		})
		require.NoError(t, err)
		assert.Len(t, entry.Postings, 3)
		assert.Equal(t, clock.Now(), entry.CreatedAt)

		stored, err := st.GetJournalEntry(ctx, entry.ID)
		require.NoError(t, err)
		sum, err := models.SumAmounts(models.CurrencyUSD, postingAmounts(stored)...)
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})

	rejected := []struct {
		name     string
		postings []models.PostingRequest
	}{
		{"single posting", []models.PostingRequest{{LedgerAccountID: a, Amount: usd(10)}}},
		{"does not sum to zero", []models.PostingRequest{
			{LedgerAccountID: a, Amount: usd(-10)},
			{LedgerAccountID: b, Amount: usd(9)},
		}},
		{"mixed currencies", []models.PostingRequest{
			{LedgerAccountID: a, Amount: usd(-10)},
			{LedgerAccountID: b, Amount: models.AmountOf(models.CurrencyNGN, 10)},
		}},
		{"zero posting", []models.PostingRequest{
			{LedgerAccountID: a, Amount: usd(0)},
			{LedgerAccountID: b, Amount: usd(0)},
		}},
		{"same ledger account twice", []models.PostingRequest{
			{LedgerAccountID: a, Amount: usd(-10)},
			{LedgerAccountID: a, Amount: usd(10)},
		}},
	}
	t.Run("postings finer than a cent", func(t *testing.T) {
		half := decimal.RequireFromString("0.005")
		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := ledger.Record(ctx, tx, []models.PostingRequest{
				{LedgerAccountID: a, Amount: models.Amount{Currency: models.CurrencyUSD, Amount: half.Neg()}},
				{LedgerAccountID: b, Amount: models.Amount{Currency: models.CurrencyUSD, Amount: half}},
			})
			return err
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			err := st.WithTx(ctx, func(tx store.Tx) error {
				_, err := ledger.Record(ctx, tx, tc.postings)
				return err
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnbalancedEntry))

			var unbalanced *UnbalancedEntryError
			assert.True(t, errors.As(err, &unbalanced))
		})
	}
}

func postingAmounts(entry *models.JournalEntry) []models.Amount {
	amounts := make([]models.Amount, 0, len(entry.Postings))
	for _, p := range entry.Postings {
		amounts = append(amounts, p.Amount)
	}
	return amounts
}

func TestLedgerService_SystemLedgerAccount(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestClock().Now)
	st := memory.NewMemoryStore()

	t.Run("one account per type and currency", func(t *testing.T) {
		var first, second *models.LedgerAccount
		require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
			var err error
			if first, err = ledger.SystemLedgerAccount(ctx, tx, models.LedgerAccountBank, models.CurrencyUSD); err != nil {
				return err
			}
			second, err = ledger.SystemLedgerAccount(ctx, tx, models.LedgerAccountBank, models.CurrencyUSD)
			return err
		}))
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, SystemLedgerAccountID(models.LedgerAccountBank, models.CurrencyUSD), first.ID)
		assert.NotEqual(t, first.ID, SystemLedgerAccountID(models.LedgerAccountBank, models.CurrencyNGN))
		assert.NotEqual(t, first.ID, SystemLedgerAccountID(models.LedgerAccountFee, models.CurrencyUSD))
	})

	t.Run("owner types are refused", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := ledger.SystemLedgerAccount(ctx, tx, models.LedgerAccountCard, models.CurrencyUSD)
			return err
		})
		assert.ErrorIs(t, err, ErrInvalidLedgerAccountType)
	})
}

func TestLedgerService_RecordPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	ledger := NewLedgerService(func() time.Time { return now })
	st := postgres.NewPostgresStore(db)
	from, to := uuid.New(), uuid.New()

	t.Run("postings are written in one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO journal_entry").
			WithArgs(sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO posting").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), from.String(), sqlmock.AnyArg(), "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO posting").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), to.String(), sqlmock.AnyArg(), "USD").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := ledger.RecordReallocation(ctx, tx, from, to, usd(25))
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed posting rolls back the entry", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO journal_entry").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO posting").
			WillReturnError(errors.New("foreign key violation"))
		mock.ExpectRollback()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := ledger.RecordReallocation(ctx, tx, from, to, usd(25))
			return err
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbalanced entry never reaches the database", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := ledger.Record(ctx, tx, []models.PostingRequest{
				{LedgerAccountID: from, Amount: usd(-25)},
				{LedgerAccountID: to, Amount: usd(20)},
			})
			return err
		})
		assert.ErrorIs(t, err, ErrUnbalancedEntry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
