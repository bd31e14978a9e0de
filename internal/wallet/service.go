package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("wallet: not found")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidArgument   = errors.New("wallet: invalid argument")
)

// Repository is the persistence contract for the ledger and its balance
// projection. Post must be atomic per account: idempotency check, ledger
// insert, and balance update happen under one per-account serialization
// (a DB transaction with a row lock, or a per-account mutex in memory).
type Repository interface {
	// Post appends entry and applies its signed amount to the balance.
	// If an entry with the same (account_id, idempotency_key) already
	// exists, the existing entry and current balance are returned and
	// nothing is written.
	//
	// allowNegative permits the balance to go below zero. Settlement of
	// an already-terminated call sets it: the call happened and cannot
	// be un-billed, so the debit always posts.
	Post(ctx context.Context, entry LedgerEntry, allowNegative bool) (LedgerEntry, Balance, error)

	GetBalance(ctx context.Context, accountID string) (Balance, error)
	ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error)
}

// Service provides wallet operations.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreditRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	ExternalRef    string `json:"external_ref,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

type DebitRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	ExternalRef    string `json:"external_ref,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`

	// AllowNegative lets the debit overdraw the wallet. Only the billing
	// settlement path sets this; user-initiated spending must not.
	AllowNegative bool `json:"-"`
}

func (s *Service) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	if accountID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return s.repo.GetBalance(ctx, accountID)
}

func (s *Service) ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	if accountID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.ListEntries(ctx, accountID, limit)
}

func (s *Service) Credit(ctx context.Context, accountID string, req CreditRequest) (LedgerEntry, Balance, error) {
	if err := validateMoneyReq(accountID, req.AmountMinor, req.Currency, req.IdempotencyKey); err != nil {
		return LedgerEntry{}, Balance{}, err
	}

	entry := LedgerEntry{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Type:           EntryTypeCredit,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		ExternalRef:    req.ExternalRef,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.clock().UTC(),
	}
	return s.repo.Post(ctx, entry, false)
}

func (s *Service) Debit(ctx context.Context, accountID string, req DebitRequest) (LedgerEntry, Balance, error) {
	if err := validateMoneyReq(accountID, req.AmountMinor, req.Currency, req.IdempotencyKey); err != nil {
		return LedgerEntry{}, Balance{}, err
	}

	entry := LedgerEntry{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Type:           EntryTypeDebit,
		AmountMinor:    -req.AmountMinor,
		Currency:       req.Currency,
		ExternalRef:    req.ExternalRef,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.clock().UTC(),
	}
	return s.repo.Post(ctx, entry, req.AllowNegative)
}

func validateMoneyReq(accountID string, amountMinor int64, currency, idempotencyKey string) error {
	if accountID == "" {
		return ErrInvalidArgument
	}
	if currency == "" {
		return ErrInvalidArgument
	}
	if idempotencyKey == "" {
		return ErrInvalidArgument
	}
	if amountMinor <= 0 {
		return ErrInvalidArgument
	}
	return nil
}
