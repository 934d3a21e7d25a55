package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/shopspring/decimal"
)

func (q *queries) InsertCard(ctx context.Context, c *models.Card) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO card (id, business_id, allocation_id, account_id, card_number, last_four, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.BusinessID, c.AllocationID, c.AccountID, c.CardNumber, c.LastFour, c.Status, c.CreatedAt)
	return translate(err)
}

func (q *queries) GetCardByNumber(ctx context.Context, cardNumber string) (*models.Card, error) {
	var c models.Card
	err := q.db.QueryRowContext(ctx, `
		SELECT id, business_id, allocation_id, account_id, card_number, last_four, status, created_at
		FROM card WHERE card_number = $1`, cardNumber).Scan(&c.ID, &c.BusinessID, &c.AllocationID,
		&c.AccountID, &c.CardNumber, &c.LastFour, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

const networkMessageColumns = `id, business_id, allocation_id, account_id, card_id, network_ref, type, amount, currency, outcome, decline_reason, hold_id, adjustment_id, merchant_name, merchant_address, merchant_number, merchant_category_code, request, created_at`

func (q *queries) InsertNetworkMessage(ctx context.Context, m *models.NetworkMessage) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO network_message (`+networkMessageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		m.ID, m.BusinessID, m.AllocationID, m.AccountID, m.CardID, m.NetworkRef, m.Type,
		m.Amount.Amount, m.Amount.Currency, m.Outcome, m.DeclineReason, m.HoldID, m.AdjustmentID,
		m.MerchantName, m.MerchantAddress, m.MerchantNumber, m.MerchantCategoryCode, m.Request, m.CreatedAt)
	return translate(err)
}

func (q *queries) GetNetworkMessage(ctx context.Context, id uuid.UUID) (*models.NetworkMessage, error) {
	var m models.NetworkMessage
	var value decimal.Decimal
	var currency string
	err := q.db.QueryRowContext(ctx, `
		SELECT `+networkMessageColumns+` FROM network_message WHERE id = $1`, id).Scan(
		&m.ID, &m.BusinessID, &m.AllocationID, &m.AccountID, &m.CardID, &m.NetworkRef, &m.Type,
		&value, &currency, &m.Outcome, &m.DeclineReason, &m.HoldID, &m.AdjustmentID,
		&m.MerchantName, &m.MerchantAddress, &m.MerchantNumber, &m.MerchantCategoryCode, &m.Request, &m.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	m.Amount = models.NewAmount(models.Currency(currency), value)
	return &m, nil
}

const activityColumns = `id, business_id, account_id, allocation_id, card_id, adjustment_id, hold_id, counterparty_account_id, type, status, activity_time, amount, currency, merchant_name, decline_reason, notes, visible_after, hide_after, created_at`

func (q *queries) InsertActivity(ctx context.Context, a *models.AccountActivity) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO account_activity (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		a.ID, a.BusinessID, a.AccountID, a.AllocationID, a.CardID, a.AdjustmentID, a.HoldID,
		a.CounterpartyID, a.Type, a.Status, a.ActivityTime, a.Amount.Amount, a.Amount.Currency,
		a.MerchantName, a.DeclineReason, a.Notes, a.VisibleAfter, a.HideAfter, a.CreatedAt)
	return translate(err)
}

func (q *queries) ResolveHoldActivity(ctx context.Context, holdID uuid.UUID, at time.Time) error {
	if _, err := q.db.ExecContext(ctx, `
		UPDATE account_activity SET hide_after = $1
		WHERE hold_id = $2 AND status = 'PENDING' AND (hide_after IS NULL OR hide_after > $1)`,
		at, holdID); err != nil {
		return translate(err)
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE account_activity SET visible_after = $1
		WHERE hold_id = $2 AND status = 'PROCESSED' AND visible_after > $1`,
		at, holdID)
	return translate(err)
}

func (q *queries) FindActivity(ctx context.Context, businessID uuid.UUID, filter models.ActivityFilter, now time.Time) ([]models.AccountActivity, error) {
	args := []any{businessID, now}
	where := []string{
		"business_id = $1",
		"(hide_after IS NULL OR hide_after >= $2)",
		"(visible_after IS NULL OR visible_after <= $2)",
	}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if filter.AllocationID != nil {
		add("allocation_id = $%d", *filter.AllocationID)
	}
	if filter.CardID != nil {
		add("card_id = $%d", *filter.CardID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.From != nil {
		add("activity_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("activity_time <= $%d", *filter.To)
	}

	args = append(args, filter.PageSize, filter.PageNumber*filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM account_activity WHERE %s ORDER BY activity_time DESC LIMIT $%d OFFSET $%d`,
		activityColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var activity []models.AccountActivity
	for rows.Next() {
		var a models.AccountActivity
		var value decimal.Decimal
		var currency string
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.AccountID, &a.AllocationID, &a.CardID,
			&a.AdjustmentID, &a.HoldID, &a.CounterpartyID, &a.Type, &a.Status, &a.ActivityTime,
			&value, &currency, &a.MerchantName, &a.DeclineReason, &a.Notes, &a.VisibleAfter,
			&a.HideAfter, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Amount = models.NewAmount(models.Currency(currency), value)
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
