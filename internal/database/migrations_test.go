package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations in order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		for i, m := range Migrations {
			check := mock.ExpectQuery("SELECT 1 FROM schema_migrations").WithArgs(m.Version)
			if i == 0 {
				check.WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
				continue
			}
			check.WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
			mock.ExpectBegin()
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(m.Version, m.Name).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
		}

		require.NoError(t, RunMigrations(ctx, db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed migration is rolled back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1 FROM schema_migrations").WithArgs(Migrations[0].Version).WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_account").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err = RunMigrations(ctx, db)
		assert.ErrorContains(t, err, Migrations[0].Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("versions are unique and ordered", func(t *testing.T) {
		for i := 1; i < len(Migrations); i++ {
			assert.Less(t, Migrations[i-1].Version, Migrations[i].Version)
		}
	})
}
