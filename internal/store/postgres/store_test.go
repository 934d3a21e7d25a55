package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), store.ErrNotFound)

	err := translate(&pq.Error{Code: "23505", Constraint: "card_card_number_key"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "card_card_number_key")

	other := &pq.Error{Code: "23503"}
	assert.Equal(t, error(other), translate(other))
}

func TestPostgresStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE hold SET status").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.TransitionHold(ctx, uuid.New(), models.HoldPlaced, models.HoldReleased, time.Now())
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		assert.ErrorIs(t, st.WithTx(ctx, func(tx store.Tx) error { return boom }), boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := st.WithTx(ctx, func(tx store.Tx) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err := st.WithTx(ctx, func(tx store.Tx) error { return nil })
		assert.ErrorContains(t, err, "commit transaction")
	})
}

var accountRowColumns = []string{"id", "business_id", "type", "owner_id", "ledger_account_id", "ledger_balance", "currency", "version", "created_at", "updated_at"}

func TestPostgresStore_Accounts(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	t.Run("lock reads the row for update", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery("FROM account WHERE id = \\$1 FOR UPDATE").
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows(accountRowColumns).
				AddRow(id.String(), uuid.NewString(), "CARD", uuid.NewString(), uuid.NewString(), "12.50", "USD", 3, now, now))

		account, err := st.LockAccount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.AccountTypeCard, account.Type)
		assert.Equal(t, 3, account.Version)
		assert.Equal(t, "12.50 USD", account.LedgerBalance.String())
		assert.True(t, account.AvailableBalance.Equal(account.LedgerBalance))
	})

	t.Run("missing row", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery("FROM account WHERE id").WillReturnRows(sqlmock.NewRows(accountRowColumns))

		_, err := st.GetAccount(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique violation", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO account").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "account_business_id_type_owner_id_currency_key"})

		err := st.InsertAccount(ctx, &models.Account{ID: id, LedgerBalance: models.ZeroAmount(models.CurrencyUSD)})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("balance write checks the version", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec("UPDATE account").
			WithArgs(sqlmock.AnyArg(), id.String(), 4).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := st.UpdateAccountBalance(ctx, id, models.AmountOf(models.CurrencyUSD, 5), 4)
		assert.ErrorIs(t, err, store.ErrOptimisticLock)
	})

	t.Run("balance write succeeds", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec("UPDATE account").
			WithArgs(sqlmock.AnyArg(), id.String(), 4).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, st.UpdateAccountBalance(ctx, id, models.AmountOf(models.CurrencyUSD, 5), 4))
	})
}

func TestPostgresStore_TransitionHold(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	at := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		affected int64
		expected bool
	}{
		{"hold still placed", 1, true},
		{"hold already terminal", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, mock := newMockStore(t)
			mock.ExpectExec("UPDATE hold SET status").
				WithArgs("CAPTURED", at, id.String(), "PLACED").
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			ok, err := st.TransitionHold(ctx, id, models.HoldPlaced, models.HoldCaptured, at)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_ListAdjustments(t *testing.T) {
	ctx := context.Background()
	st, mock := newMockStore(t)
	businessID := uuid.New()
	from := time.Date(2025, time.March, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM adjustment WHERE business_id = \$1 AND type = ANY\(\$2\) AND effective_date > \$3 ORDER BY effective_date`).
		WithArgs(businessID.String(), sqlmock.AnyArg(), from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "account_id", "ledger_account_id", "journal_entry_id", "posting_id", "type", "effective_date", "amount", "currency", "created_at"}).
			AddRow(uuid.NewString(), businessID.String(), uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), "DEPOSIT", from.Add(time.Hour), "100", "USD", from.Add(time.Hour)))

	adjustments, err := st.ListAdjustments(ctx, store.AdjustmentQuery{
		BusinessID: &businessID,
		Types:      []models.AdjustmentType{models.AdjustmentDeposit, models.AdjustmentWithdraw},
		From:       &from,
	})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, models.AdjustmentDeposit, adjustments[0].Type)
	assert.True(t, adjustments[0].Amount.Equal(models.AmountOf(models.CurrencyUSD, 100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindActivity(t *testing.T) {
	ctx := context.Background()
	st, mock := newMockStore(t)
	businessID := uuid.New()
	cardID := uuid.New()
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM account_activity WHERE .* AND card_id = \$3 ORDER BY activity_time DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(businessID.String(), now, cardID.String(), 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.FindActivity(ctx, businessID, models.ActivityFilter{CardID: &cardID, PageSize: 20, PageNumber: 2}, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Limits(t *testing.T) {
	ctx := context.Background()
	st, mock := newMockStore(t)
	businessID := uuid.New()

	mock.ExpectQuery("FROM business_limit WHERE business_id = \\$1 FOR UPDATE").
		WithArgs(businessID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "limits", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), businessID.String(), []byte(`{"USD":{"DEPOSIT":{"DAILY":"10000"}}}`), time.Now(), time.Now()))
	mock.ExpectExec("UPDATE business_limit").WillReturnResult(sqlmock.NewResult(0, 0))

	limit, err := st.LockBusinessLimit(ctx, businessID)
	require.NoError(t, err)
	assert.NotNil(t, limit.Limits.For(models.CurrencyUSD, models.LimitDeposit))

	err = st.UpdateBusinessLimit(ctx, limit)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
