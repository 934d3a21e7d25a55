package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/models"
	"github.com/ruralpay/ledger/internal/store"
)

const businessLimitColumns = `id, business_id, limits, created_at, updated_at`

func scanBusinessLimit(row scanner) (*models.BusinessLimit, error) {
	var l models.BusinessLimit
	if err := row.Scan(&l.ID, &l.BusinessID, &l.Limits, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (q *queries) InsertBusinessLimit(ctx context.Context, l *models.BusinessLimit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO business_limit (`+businessLimitColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.BusinessID, l.Limits, l.CreatedAt, l.UpdatedAt)
	return translate(err)
}

func (q *queries) GetBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	return scanBusinessLimit(q.db.QueryRowContext(ctx, `
		SELECT `+businessLimitColumns+` FROM business_limit WHERE business_id = $1`, businessID))
}

func (q *queries) LockBusinessLimit(ctx context.Context, businessID uuid.UUID) (*models.BusinessLimit, error) {
	return scanBusinessLimit(q.db.QueryRowContext(ctx, `
		SELECT `+businessLimitColumns+` FROM business_limit WHERE business_id = $1 FOR UPDATE`, businessID))
}

func (q *queries) UpdateBusinessLimit(ctx context.Context, l *models.BusinessLimit) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE business_limit SET limits = $1, updated_at = $2
		WHERE business_id = $3`,
		l.Limits, l.UpdatedAt, l.BusinessID)
	if err != nil {
		return translate(err)
	}
	if err := expectOneRow(result, store.ErrNotFound); err != nil {
		return fmt.Errorf("business limit %s: %w", l.BusinessID, err)
	}
	return nil
}

const transactionLimitColumns = `id, business_id, type, owner_id, limits, disabled_mcc_groups, disabled_transaction_channels, created_at, updated_at`

func (q *queries) InsertTransactionLimit(ctx context.Context, l *models.TransactionLimit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transaction_limit (`+transactionLimitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.BusinessID, l.Type, l.OwnerID, l.Limits, l.DisabledMccGroups,
		l.DisabledTransactionChannels, l.CreatedAt, l.UpdatedAt)
	return translate(err)
}

func (q *queries) GetTransactionLimit(ctx context.Context, businessID uuid.UUID, typ models.TransactionLimitType, ownerID uuid.UUID) (*models.TransactionLimit, error) {
	var l models.TransactionLimit
	err := q.db.QueryRowContext(ctx, `
		SELECT `+transactionLimitColumns+` FROM transaction_limit
		WHERE business_id = $1 AND type = $2 AND owner_id = $3`,
		businessID, typ, ownerID).Scan(&l.ID, &l.BusinessID, &l.Type, &l.OwnerID, &l.Limits,
		&l.DisabledMccGroups, &l.DisabledTransactionChannels, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (q *queries) UpdateTransactionLimit(ctx context.Context, l *models.TransactionLimit) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE transaction_limit
		SET limits = $1, disabled_mcc_groups = $2, disabled_transaction_channels = $3, updated_at = $4
		WHERE id = $5`,
		l.Limits, l.DisabledMccGroups, l.DisabledTransactionChannels, l.UpdatedAt, l.ID)
	if err != nil {
		return translate(err)
	}
	if err := expectOneRow(result, store.ErrNotFound); err != nil {
		return fmt.Errorf("transaction limit %s: %w", l.ID, err)
	}
	return nil
}
