package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"virtualphone-platform/pkg/utils"
)

// PostgresRepo persists the ledger and balance projection.
//
// Assumed tables:
// - wallet_ledger (immutable append-only), with
//   UNIQUE (account_id, idempotency_key)
// - wallet_balances (projection, one row per account)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Post(ctx context.Context, entry LedgerEntry, allowNegative bool) (LedgerEntry, Balance, error) {
	var outEntry LedgerEntry
	var outBal Balance

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Ensure the balance row exists, then lock it to serialize
		// concurrent money operations per account.
		if err := ensureBalanceRow(ctx, tx, entry.AccountID, entry.Currency, entry.CreatedAt); err != nil {
			return err
		}
		bal, err := getBalanceForUpdate(ctx, tx, entry.AccountID)
		if err != nil {
			return err
		}

		// Idempotency: if an entry already exists for this account+key,
		// return it and the current balance.
		if existing, ok, err := findEntryByIdempotency(ctx, tx, entry.AccountID, entry.IdempotencyKey); err != nil {
			return err
		} else if ok {
			outEntry = existing
			outBal = bal
			return nil
		}

		next := bal.BalanceMinor + entry.AmountMinor
		if next < 0 && !allowNegative {
			return ErrInsufficientFunds
		}

		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}

		b, err := applyBalanceDelta(ctx, tx, entry.AccountID, entry.AmountMinor, entry.CreatedAt)
		if err != nil {
			return err
		}
		outEntry = entry
		outBal = b
		return nil
	})

	return outEntry, outBal, err
}

func (r *PostgresRepo) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	const q = `
SELECT account_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE account_id = $1
`
	var b Balance
	if err := r.db.QueryRowContext(ctx, q, accountID).Scan(
		&b.AccountID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{AccountID: accountID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func (r *PostgresRepo) ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	const q = `
SELECT id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
FROM wallet_ledger
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.Type,
			&e.AmountMinor,
			&e.Currency,
			&e.ExternalRef,
			&e.IdempotencyKey,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func ensureBalanceRow(ctx context.Context, tx *sql.Tx, accountID, currency string, now time.Time) error {
	const q = `
INSERT INTO wallet_balances (account_id, currency, balance_minor, updated_at)
VALUES ($1, $2, 0, $3)
ON CONFLICT (account_id) DO NOTHING
`
	_, err := tx.ExecContext(ctx, q, accountID, currency, now)
	return err
}

func getBalanceForUpdate(ctx context.Context, tx *sql.Tx, accountID string) (Balance, error) {
	const q = `
SELECT account_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE account_id = $1
FOR UPDATE
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, accountID).Scan(
		&b.AccountID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func findEntryByIdempotency(ctx context.Context, tx *sql.Tx, accountID, key string) (LedgerEntry, bool, error) {
	const q = `
SELECT id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
FROM wallet_ledger
WHERE account_id = $1 AND idempotency_key = $2
LIMIT 1
`
	var e LedgerEntry
	err := tx.QueryRowContext(ctx, q, accountID, key).Scan(
		&e.ID,
		&e.AccountID,
		&e.Type,
		&e.AmountMinor,
		&e.Currency,
		&e.ExternalRef,
		&e.IdempotencyKey,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, err
	}
	return e, true, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e LedgerEntry) error {
	const q = `
INSERT INTO wallet_ledger (
  id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.AccountID,
		e.Type,
		e.AmountMinor,
		e.Currency,
		e.ExternalRef,
		e.IdempotencyKey,
		e.CreatedAt,
	)
	return err
}

func applyBalanceDelta(ctx context.Context, tx *sql.Tx, accountID string, deltaMinor int64, now time.Time) (Balance, error) {
	const q = `
UPDATE wallet_balances
SET balance_minor = balance_minor + $2,
    updated_at = $3
WHERE account_id = $1
RETURNING account_id, currency, balance_minor, updated_at
`
	var b Balance
	if err := tx.QueryRowContext(ctx, q, accountID, deltaMinor, now).Scan(
		&b.AccountID,
		&b.Currency,
		&b.BalanceMinor,
		&b.UpdatedAt,
	); err != nil {
		return Balance{}, err
	}
	return b, nil
}
