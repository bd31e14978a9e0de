package wallet

import "time"

// LedgerEntry is an immutable append-only entry. Each row represents a
// credit/debit posted to an account's prepaid wallet.
//
// Money invariants:
// - No balance updates without a ledger entry
// - Ledger is append-only (immutable)
// - At most one entry may exist per (account_id, idempotency_key)
type LedgerEntry struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	// Type categorizes the ledger entry. Keep stable.
	Type EntryType `json:"type" db:"type"`

	// AmountMinor is the signed amount in minor units (e.g., cents).
	// Credits are positive, debits are negative.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// ExternalRef is optional: session_id, payment reference, etc.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	// IdempotencyKey is required for safe retries of money-posting
	// operations. Call settlement uses the session id.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryType string

const (
	EntryTypeCredit EntryType = "credit" // top-up, adjustment, etc.
	EntryTypeDebit  EntryType = "debit"  // usage charge, fee, etc.
)

// Balance is the projection of the ledger for one account.
type Balance struct {
	AccountID    string    `json:"account_id" db:"account_id"`
	Currency     string    `json:"currency" db:"currency"`
	BalanceMinor int64     `json:"balance_minor" db:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
