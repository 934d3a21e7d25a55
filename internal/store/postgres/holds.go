package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/shopspring/decimal"
)

const holdColumns = `id, business_id, account_id, amount, currency, status, network_ref, created_at, expiration_date, updated_at`

func scanHold(row scanner) (*models.Hold, error) {
	var h models.Hold
	var value decimal.Decimal
	var currency string
	if err := row.Scan(&h.ID, &h.BusinessID, &h.AccountID, &value, &currency, &h.Status,
		&h.NetworkRef, &h.CreatedAt, &h.ExpirationDate, &h.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	h.Amount = models.NewAmount(models.Currency(currency), value)
	return &h, nil
}

func (q *queries) listHolds(ctx context.Context, query string, args ...any) ([]models.Hold, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var holds []models.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, *h)
	}
	return holds, rows.Err()
}

func (q *queries) InsertHold(ctx context.Context, h *models.Hold) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO hold (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		h.ID, h.BusinessID, h.AccountID, h.Amount.Amount, h.Amount.Currency, h.Status,
		h.NetworkRef, h.CreatedAt, h.ExpirationDate, h.UpdatedAt)
	return translate(err)
}

func (q *queries) GetHold(ctx context.Context, id uuid.UUID) (*models.Hold, error) {
	return scanHold(q.db.QueryRowContext(ctx, `
		SELECT `+holdColumns+` FROM hold WHERE id = $1`, id))
}

func (q *queries) ListPlacedHolds(ctx context.Context, accountID uuid.UUID, now time.Time) ([]models.Hold, error) {
	return q.listHolds(ctx, `
		SELECT `+holdColumns+` FROM hold
		WHERE account_id = $1 AND status = 'PLACED' AND created_at <= $2 AND expiration_date > $2
		ORDER BY created_at`, accountID, now)
}

func (q *queries) FindPlacedHoldByRef(ctx context.Context, accountID uuid.UUID, networkRef string) (*models.Hold, error) {
	return scanHold(q.db.QueryRowContext(ctx, `
		SELECT `+holdColumns+` FROM hold
		WHERE account_id = $1 AND network_ref = $2 AND status = 'PLACED'
		ORDER BY created_at DESC
		LIMIT 1`, accountID, networkRef))
}

func (q *queries) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]models.Hold, error) {
	return q.listHolds(ctx, `
		SELECT `+holdColumns+` FROM hold
		WHERE status = 'PLACED' AND expiration_date <= $1
		ORDER BY expiration_date
		LIMIT $2`, now, limit)
}

func (q *queries) TransitionHold(ctx context.Context, id uuid.UUID, from, to models.HoldStatus, at time.Time) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE hold SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		to, at, id, from)
	if err != nil {
		return false, translate(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}
