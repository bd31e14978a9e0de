package calls

import (
	"context"
	"database/sql"
	"errors"

	"virtualphone-platform/pkg/utils"
)

// PostgresStore persists call sessions.
//
// Assumed table: call_sessions, with UNIQUE (external_call_id) where
// external_call_id <> ''. Update and MarkBilled lock the session row to
// serialize concurrent webhook deliveries for the same call.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
session_id, external_call_id, account_id, from_number, to_number,
direction, status, started_at, ended_at, duration_seconds, billed
`

func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	const q = `
INSERT INTO call_sessions (
  session_id, external_call_id, account_id, from_number, to_number,
  direction, status, started_at, ended_at, duration_seconds, billed
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := s.db.ExecContext(ctx, q,
		sess.SessionID,
		sess.ExternalCallID,
		sess.AccountID,
		sess.From,
		sess.To,
		sess.Direction,
		sess.Status,
		sess.StartedAt,
		sess.EndedAt,
		sess.DurationSeconds,
		sess.Billed,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE session_id = $1
`
	return scanSession(s.db.QueryRowContext(ctx, q, sessionID))
}

func (s *PostgresStore) FindByExternalCallID(ctx context.Context, externalCallID string) (Session, bool, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE external_call_id = $1 AND external_call_id <> ''
LIMIT 1
`
	sess, err := scanSession(s.db.QueryRowContext(ctx, q, externalCallID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *PostgresStore) Update(ctx context.Context, sessionID string, fn func(*Session) error) (Session, error) {
	var out Session
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		sess, err := getSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}

		const q = `
UPDATE call_sessions
SET external_call_id = $2,
    status = $3,
    ended_at = $4,
    duration_seconds = $5
WHERE session_id = $1
`
		if _, err := tx.ExecContext(ctx, q,
			sess.SessionID,
			sess.ExternalCallID,
			sess.Status,
			sess.EndedAt,
			sess.DurationSeconds,
		); err != nil {
			return err
		}
		out = sess
		return nil
	})
	return out, err
}

func (s *PostgresStore) MarkBilled(ctx context.Context, sessionID string) (bool, error) {
	// Single-statement compare-and-set; no row returned means the flag
	// was already set or the session does not exist.
	const q = `
UPDATE call_sessions
SET billed = TRUE
WHERE session_id = $1 AND billed = FALSE
`
	res, err := s.db.ExecContext(ctx, q, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Distinguish already-billed from missing.
		if _, err := s.Get(ctx, sessionID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func getSessionForUpdate(ctx context.Context, tx *sql.Tx, sessionID string) (Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE session_id = $1
FOR UPDATE
`
	return scanSession(tx.QueryRowContext(ctx, q, sessionID))
}

func scanSession(row *sql.Row) (Session, error) {
	var sess Session
	if err := row.Scan(
		&sess.SessionID,
		&sess.ExternalCallID,
		&sess.AccountID,
		&sess.From,
		&sess.To,
		&sess.Direction,
		&sess.Status,
		&sess.StartedAt,
		&sess.EndedAt,
		&sess.DurationSeconds,
		&sess.Billed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return sess, nil
}
