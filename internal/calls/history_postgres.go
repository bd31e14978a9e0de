package calls

import (
	"context"
	"database/sql"
)

// PostgresHistory persists archived call records.
//
// Assumed table: call_history (append-only).
type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

func (h *PostgresHistory) Append(ctx context.Context, r Record) error {
	const q = `
INSERT INTO call_history (
  call_id, account_id, external_call_id, from_number, to_number,
  direction, status, duration_seconds, cost_minor, started_at, ended_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (call_id) DO NOTHING
`
	_, err := h.db.ExecContext(ctx, q,
		r.CallID,
		r.AccountID,
		r.ExternalCallID,
		r.From,
		r.To,
		r.Direction,
		r.Status,
		r.DurationSeconds,
		r.CostMinor,
		r.StartedAt,
		r.EndedAt,
	)
	return err
}

func (h *PostgresHistory) ListByAccount(ctx context.Context, accountID string, limit int) ([]Record, error) {
	const q = `
SELECT call_id, account_id, external_call_id, from_number, to_number,
       direction, status, duration_seconds, cost_minor, started_at, ended_at
FROM call_history
WHERE account_id = $1
ORDER BY started_at DESC
LIMIT $2
`
	rows, err := h.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.CallID,
			&r.AccountID,
			&r.ExternalCallID,
			&r.From,
			&r.To,
			&r.Direction,
			&r.Status,
			&r.DurationSeconds,
			&r.CostMinor,
			&r.StartedAt,
			&r.EndedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
