package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// uniqueViolation is the postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists compliance accounts in PostgreSQL. Running totals are
// updated with single UPDATE ... RETURNING statements inside the transaction
// that writes the matching log or purchase row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, name, credits_owned, total_emissions, created_at, updated_at`

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Name, &a.CreditsOwned, &a.TotalEmissions, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) Create(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_accounts (id, name, credits_owned, total_emissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.CreditsOwned, a.TotalEmissions, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return apperrors.Conflict(fmt.Sprintf("account %s already exists", a.ID))
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM compliance_accounts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	logs, err := s.logs(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	a.DailyLogs = logs
	return a, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) logs(ctx context.Context, q querier, accountID string) ([]DailyLog, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT log_date, amount, logged_by, logged_at
		FROM emission_logs
		WHERE account_id = $1
		ORDER BY id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list emission logs: %w", err)
	}
	defer rows.Close()

	var out []DailyLog
	for rows.Next() {
		var l DailyLog
		if err := rows.Scan(&l.Date, &l.Amount, &l.LoggedBy, &l.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan emission log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM compliance_accounts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendLog(ctx context.Context, id string, log DailyLog) (*Account, error) {
	var a *Account
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = scanAccount(tx.QueryRowContext(ctx, `
			UPDATE compliance_accounts
			SET total_emissions = total_emissions + $2, updated_at = $3
			WHERE id = $1
			RETURNING `+accountColumns, id, log.Amount, log.LoggedAt))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("account", id)
		}
		if err != nil {
			return fmt.Errorf("increment emissions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO emission_logs (account_id, log_date, amount, logged_by, logged_at)
			VALUES ($1, $2, $3, $4, $5)`,
			id, log.Date, log.Amount, log.LoggedBy, log.LoggedAt)
		if err != nil {
			return fmt.Errorf("insert emission log: %w", err)
		}

		a.DailyLogs, err = s.logs(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) AddCredits(ctx context.Context, id string, amount decimal.Decimal, at time.Time) (*Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `
		UPDATE compliance_accounts
		SET credits_owned = credits_owned + $2, updated_at = $3
		WHERE id = $1
		RETURNING `+accountColumns, id, amount, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}
	return a, nil
}

const purchaseColumns = `reference, account_id, package_id, amount, price, currency, confirmed_at`

func scanPurchase(row rowScanner) (*Purchase, error) {
	var p Purchase
	if err := row.Scan(&p.Reference, &p.AccountID, &p.PackageID, &p.Amount, &p.Price, &p.Currency, &p.ConfirmedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplyPurchase inserts the purchase with ON CONFLICT DO NOTHING; a concurrent
// duplicate blocks on the key until the first commits, then sees zero rows.
func (s *PostgresStore) ApplyPurchase(ctx context.Context, p Purchase) (*Account, *Purchase, bool, error) {
	var (
		acct    *Account
		stored  *Purchase
		applied bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO credit_purchases (`+purchaseColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (reference) DO NOTHING`,
			p.Reference, p.AccountID, p.PackageID, p.Amount, p.Price, p.Currency, p.ConfirmedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
				return apperrors.NotFound("account", p.AccountID)
			}
			return fmt.Errorf("insert purchase: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("purchase rows affected: %w", err)
		}

		if inserted == 0 {
			stored, err = scanPurchase(tx.QueryRowContext(ctx,
				`SELECT `+purchaseColumns+` FROM credit_purchases WHERE reference = $1`, p.Reference))
			if err != nil {
				return fmt.Errorf("load existing purchase: %w", err)
			}
			if err := samePurchase(*stored, p); err != nil {
				return err
			}
			acct, err = scanAccount(tx.QueryRowContext(ctx,
				`SELECT `+accountColumns+` FROM compliance_accounts WHERE id = $1`, stored.AccountID))
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			return nil
		}

		acct, err = scanAccount(tx.QueryRowContext(ctx, `
			UPDATE compliance_accounts
			SET credits_owned = credits_owned + $2, updated_at = $3
			WHERE id = $1
			RETURNING `+accountColumns, p.AccountID, p.Amount, p.ConfirmedAt))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("account", p.AccountID)
		}
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		stored = &p
		applied = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return acct, stored, applied, nil
}

func (s *PostgresStore) Purchases(ctx context.Context, accountID string) ([]Purchase, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM credit_purchases WHERE account_id = $1 ORDER BY confirmed_at ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
