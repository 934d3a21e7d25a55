package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Migration is one versioned schema change. Versions are applied in slice order.
type Migration struct {
	Version string
	Name    string
	Up      string
}

// Migrations is the ledger schema
var Migrations = []Migration{
	{
		Version: "20250301000001",
		Name:    "create_ledger",
		Up: `
CREATE TABLE IF NOT EXISTS ledger_account (
    id          UUID PRIMARY KEY,
    type        TEXT NOT NULL,
    currency    CHAR(3) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS journal_entry (
    id          UUID PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS posting (
    id                 UUID PRIMARY KEY,
    journal_entry_id   UUID NOT NULL REFERENCES journal_entry (id),
    ledger_account_id  UUID NOT NULL REFERENCES ledger_account (id),
    amount             NUMERIC(19, 4) NOT NULL CHECK (amount <> 0),
    currency           CHAR(3) NOT NULL,
    UNIQUE (journal_entry_id, ledger_account_id)
);

CREATE INDEX IF NOT EXISTS idx_posting_ledger_account ON posting (ledger_account_id);
`,
	},
	{
		Version: "20250301000002",
		Name:    "create_accounts",
		Up: `
CREATE TABLE IF NOT EXISTS account (
    id                 UUID PRIMARY KEY,
    business_id        UUID NOT NULL,
    type               TEXT NOT NULL,
    owner_id           UUID NOT NULL,
    ledger_account_id  UUID NOT NULL UNIQUE REFERENCES ledger_account (id),
    ledger_balance     NUMERIC(19, 4) NOT NULL DEFAULT 0,
    currency           CHAR(3) NOT NULL,
    version            INT NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (business_id, type, owner_id, currency)
);

CREATE TABLE IF NOT EXISTS adjustment (
    id                 UUID PRIMARY KEY,
    business_id        UUID NOT NULL,
    account_id         UUID NOT NULL REFERENCES account (id),
    ledger_account_id  UUID NOT NULL REFERENCES ledger_account (id),
    journal_entry_id   UUID NOT NULL REFERENCES journal_entry (id),
    posting_id         UUID NOT NULL UNIQUE REFERENCES posting (id),
    type               TEXT NOT NULL,
    effective_date     TIMESTAMPTZ NOT NULL,
    amount             NUMERIC(19, 4) NOT NULL,
    currency           CHAR(3) NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_adjustment_account ON adjustment (account_id, effective_date);
CREATE INDEX IF NOT EXISTS idx_adjustment_business_type ON adjustment (business_id, type, effective_date);

CREATE TABLE IF NOT EXISTS hold (
    id               UUID PRIMARY KEY,
    business_id      UUID NOT NULL,
    account_id       UUID NOT NULL REFERENCES account (id),
    amount           NUMERIC(19, 4) NOT NULL CHECK (amount > 0),
    currency         CHAR(3) NOT NULL,
    status           TEXT NOT NULL DEFAULT 'PLACED',
    network_ref      TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expiration_date  TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_hold_account_placed ON hold (account_id) WHERE status = 'PLACED';
CREATE INDEX IF NOT EXISTS idx_hold_expiration_placed ON hold (expiration_date) WHERE status = 'PLACED';
`,
	},
	{
		Version: "20250301000003",
		Name:    "create_limits",
		Up: `
CREATE TABLE IF NOT EXISTS business_limit (
    id           UUID PRIMARY KEY,
    business_id  UUID NOT NULL UNIQUE,
    limits       JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transaction_limit (
    id                             UUID PRIMARY KEY,
    business_id                    UUID NOT NULL,
    type                           TEXT NOT NULL,
    owner_id                       UUID NOT NULL,
    limits                         JSONB NOT NULL DEFAULT '{}',
    disabled_mcc_groups            JSONB NOT NULL DEFAULT '[]',
    disabled_transaction_channels  JSONB NOT NULL DEFAULT '[]',
    created_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (business_id, type, owner_id)
);
`,
	},
	{
		Version: "20250301000004",
		Name:    "create_cards_and_network_messages",
		Up: `
CREATE TABLE IF NOT EXISTS card (
    id             UUID PRIMARY KEY,
    business_id    UUID NOT NULL,
    allocation_id  UUID NOT NULL,
    account_id     UUID NOT NULL REFERENCES account (id),
    card_number    TEXT NOT NULL UNIQUE,
    last_four      CHAR(4) NOT NULL,
    status         TEXT NOT NULL DEFAULT 'active',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS network_message (
    id                      UUID PRIMARY KEY,
    business_id             UUID NOT NULL,
    allocation_id           UUID NOT NULL,
    account_id              UUID NOT NULL REFERENCES account (id),
    card_id                 UUID NOT NULL REFERENCES card (id),
    network_ref             TEXT NOT NULL DEFAULT '',
    type                    TEXT NOT NULL,
    amount                  NUMERIC(19, 4) NOT NULL,
    currency                CHAR(3) NOT NULL,
    outcome                 TEXT NOT NULL,
    decline_reason          TEXT NOT NULL DEFAULT '',
    hold_id                 UUID REFERENCES hold (id),
    adjustment_id           UUID REFERENCES adjustment (id),
    merchant_name           TEXT NOT NULL DEFAULT '',
    merchant_address        TEXT NOT NULL DEFAULT '',
    merchant_number         TEXT NOT NULL DEFAULT '',
    merchant_category_code  INT NOT NULL DEFAULT 0,
    request                 JSONB,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_network_message_ref ON network_message (account_id, network_ref);
`,
	},
	{
		Version: "20250301000005",
		Name:    "create_account_activity",
		Up: `
CREATE TABLE IF NOT EXISTS account_activity (
    id                       UUID PRIMARY KEY,
    business_id              UUID NOT NULL,
    account_id               UUID NOT NULL REFERENCES account (id),
    allocation_id            UUID,
    card_id                  UUID,
    adjustment_id            UUID REFERENCES adjustment (id),
    hold_id                  UUID REFERENCES hold (id),
    counterparty_account_id  UUID,
    type                     TEXT NOT NULL,
    status                   TEXT NOT NULL,
    activity_time            TIMESTAMPTZ NOT NULL,
    amount                   NUMERIC(19, 4) NOT NULL,
    currency                 CHAR(3) NOT NULL,
    merchant_name            TEXT NOT NULL DEFAULT '',
    decline_reason           TEXT NOT NULL DEFAULT '',
    notes                    TEXT NOT NULL DEFAULT '',
    visible_after            TIMESTAMPTZ,
    hide_after               TIMESTAMPTZ,
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_account_activity_business_time ON account_activity (business_id, activity_time DESC);
CREATE INDEX IF NOT EXISTS idx_account_activity_hold ON account_activity (hold_id) WHERE hold_id IS NOT NULL;
`,
	},
}

// RunMigrations applies every migration not yet recorded in schema_migrations.
// Each migration commits together with its schema_migrations row.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range Migrations {
		var exists int
		err := db.QueryRowContext(ctx, "SELECT 1 FROM schema_migrations WHERE version = $1", m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", m.Version, err)
		}

		log.Printf("[DATABASE] Applying migration %s_%s", m.Version, m.Name)
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Version, m.Name); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
