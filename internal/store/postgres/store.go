package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	"github.com/ruralpay/ledger/internal/store"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements store.Store on database/sql with the lib/pq driver
type PostgresStore struct {
	*queries
	db *sql.DB
}

// queries holds every statement; it runs against the pool or a transaction
type queries struct {
	db dbtx
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		queries: &queries{db: db},
		db:      db,
	}
}

// WithTx runs fn in one database transaction. Any error from fn rolls back every write.
func (p *PostgresStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&queries{db: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		log.Printf("[STORE] Failed to commit transaction: %v", err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// translate maps driver errors to store sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

var _ store.Store = (*PostgresStore)(nil)
