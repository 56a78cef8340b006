package compliance

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS compliance_accounts (
	id              TEXT PRIMARY KEY,
	seq             BIGSERIAL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	credits_owned   NUMERIC(30,6) NOT NULL DEFAULT 0,
	total_emissions NUMERIC(30,6) NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS emission_logs (
	id         BIGSERIAL PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES compliance_accounts(id),
	log_date   VARCHAR(10) NOT NULL,
	amount     NUMERIC(30,6) NOT NULL CHECK (amount > 0),
	logged_by  TEXT NOT NULL,
	logged_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS emission_logs_account_idx ON emission_logs (account_id, id);

CREATE TABLE IF NOT EXISTS credit_purchases (
	reference    TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL REFERENCES compliance_accounts(id),
	package_id   TEXT NOT NULL,
	amount       NUMERIC(30,6) NOT NULL,
	price        NUMERIC(30,6) NOT NULL,
	currency     VARCHAR(8) NOT NULL,
	confirmed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS credit_purchases_account_idx ON credit_purchases (account_id, confirmed_at);
`

// Migrate creates the compliance tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate compliance schema: %w", err)
	}
	return nil
}
