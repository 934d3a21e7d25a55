package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...any) error
}

func (q *queries) InsertLedgerAccount(ctx context.Context, la *models.LedgerAccount) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ledger_account (id, type, currency, created_at)
		VALUES ($1, $2, $3, $4)`,
		la.ID, la.Type, la.Currency, la.CreatedAt)
	return translate(err)
}

func (q *queries) EnsureLedgerAccount(ctx context.Context, la *models.LedgerAccount) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ledger_account (id, type, currency, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		la.ID, la.Type, la.Currency, la.CreatedAt)
	return translate(err)
}

func (q *queries) GetLedgerAccount(ctx context.Context, id uuid.UUID) (*models.LedgerAccount, error) {
	var la models.LedgerAccount
	var currency string
	err := q.db.QueryRowContext(ctx, `
		SELECT id, type, currency, created_at
		FROM ledger_account
		WHERE id = $1`, id).Scan(&la.ID, &la.Type, &currency, &la.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	la.Currency = models.Currency(currency)
	return &la, nil
}

func (q *queries) InsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	if _, err := q.db.ExecContext(ctx, `
		INSERT INTO journal_entry (id, created_at)
		VALUES ($1, $2)`,
		entry.ID, entry.CreatedAt); err != nil {
		return translate(err)
	}

	for _, p := range entry.Postings {
		if _, err := q.db.ExecContext(ctx, `
			INSERT INTO posting (id, journal_entry_id, ledger_account_id, amount, currency)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, entry.ID, p.LedgerAccountID, p.Amount.Amount, p.Amount.Currency); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (q *queries) GetJournalEntry(ctx context.Context, id uuid.UUID) (*models.JournalEntry, error) {
	entry := models.JournalEntry{}
	err := q.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM journal_entry WHERE id = $1`, id).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, journal_entry_id, ledger_account_id, amount, currency
		FROM posting
		WHERE journal_entry_id = $1
		ORDER BY amount`, id)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Posting
		var value decimal.Decimal
		var currency string
		if err := rows.Scan(&p.ID, &p.JournalEntryID, &p.LedgerAccountID, &value, &currency); err != nil {
			return nil, err
		}
		p.Amount = models.NewAmount(models.Currency(currency), value)
		entry.Postings = append(entry.Postings, p)
	}
	return &entry, rows.Err()
}

const accountColumns = `id, business_id, type, owner_id, ledger_account_id, ledger_balance, currency, version, created_at, updated_at`

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	var balance decimal.Decimal
	var currency string
	if err := row.Scan(&a.ID, &a.BusinessID, &a.Type, &a.OwnerID, &a.LedgerAccountID,
		&balance, &currency, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	a.LedgerBalance = models.NewAmount(models.Currency(currency), balance)
	a.AvailableBalance = a.LedgerBalance
	return &a, nil
}

func (q *queries) InsertAccount(ctx context.Context, a *models.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO account (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.BusinessID, a.Type, a.OwnerID, a.LedgerAccountID,
		a.LedgerBalance.Amount, a.LedgerBalance.Currency, a.Version, a.CreatedAt, a.UpdatedAt)
	return translate(err)
}

func (q *queries) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (q *queries) GetAccountByOwner(ctx context.Context, businessID uuid.UUID, typ models.AccountType, ownerID uuid.UUID, currency models.Currency) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM account
		WHERE business_id = $1 AND type = $2 AND owner_id = $3 AND currency = $4`,
		businessID, typ, ownerID, currency))
}

func (q *queries) LockAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM account WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance models.Amount, version int) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE account
		SET ledger_balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3`,
		balance.Amount, id, version)
	if err != nil {
		return translate(err)
	}
	if err := expectOneRow(result, store.ErrOptimisticLock); err != nil {
		return fmt.Errorf("account %s: %w", id, err)
	}
	return nil
}

const adjustmentColumns = `id, business_id, account_id, ledger_account_id, journal_entry_id, posting_id, type, effective_date, amount, currency, created_at`

func scanAdjustment(row scanner) (*models.Adjustment, error) {
	var a models.Adjustment
	var value decimal.Decimal
	var currency string
	if err := row.Scan(&a.ID, &a.BusinessID, &a.AccountID, &a.LedgerAccountID, &a.JournalEntryID,
		&a.PostingID, &a.Type, &a.EffectiveDate, &value, &currency, &a.CreatedAt); err != nil {
		return nil, translate(err)
	}
	a.Amount = models.NewAmount(models.Currency(currency), value)
	return &a, nil
}

func (q *queries) InsertAdjustment(ctx context.Context, a *models.Adjustment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO adjustment (`+adjustmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.BusinessID, a.AccountID, a.LedgerAccountID, a.JournalEntryID, a.PostingID,
		a.Type, a.EffectiveDate, a.Amount.Amount, a.Amount.Currency, a.CreatedAt)
	return translate(err)
}

func (q *queries) GetAdjustment(ctx context.Context, id uuid.UUID) (*models.Adjustment, error) {
	return scanAdjustment(q.db.QueryRowContext(ctx, `
		SELECT `+adjustmentColumns+` FROM adjustment WHERE id = $1`, id))
}

func (q *queries) ListAdjustments(ctx context.Context, filter store.AdjustmentQuery) ([]models.Adjustment, error) {
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.BusinessID != nil {
		add("business_id = $%d", *filter.BusinessID)
	}
	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		add("type = ANY($%d)", pq.Array(types))
	}
	if filter.From != nil {
		add("effective_date > $%d", *filter.From)
	}
	if filter.To != nil {
		add("effective_date <= $%d", *filter.To)
	}

	query := `SELECT ` + adjustmentColumns + ` FROM adjustment`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY effective_date"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var adjustments []models.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		adjustments = append(adjustments, *a)
	}
	return adjustments, rows.Err()
}
