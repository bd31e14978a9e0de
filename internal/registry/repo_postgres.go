package registry

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads number ownership from the virtual_numbers table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FindByNumber(ctx context.Context, phoneNumber string) (OwnedNumber, bool, error) {
	const q = `
SELECT id, account_id, phone_number, country_code, status, created_at, updated_at
FROM virtual_numbers
WHERE phone_number = $1 AND status = 'assigned'
LIMIT 1
`
	var n OwnedNumber
	err := r.db.QueryRowContext(ctx, q, phoneNumber).Scan(
		&n.ID,
		&n.AccountID,
		&n.PhoneNumber,
		&n.CountryCode,
		&n.Status,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OwnedNumber{}, false, nil
		}
		return OwnedNumber{}, false, err
	}
	return n, true, nil
}
