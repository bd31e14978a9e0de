package wallet

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and early development.
// Serialization is per account, matching the contract the Postgres
// implementation provides with row locks.
type MemoryRepo struct {
	mu       sync.Mutex
	accounts map[string]*accountState
}

type accountState struct {
	mu      sync.Mutex
	balance Balance
	entries []LedgerEntry
	byKey   map[string]LedgerEntry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{accounts: make(map[string]*accountState)}
}

func (r *MemoryRepo) account(accountID, currency string) *accountState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.accounts[accountID]
	if !ok {
		st = &accountState{
			balance: Balance{AccountID: accountID, Currency: currency},
			byKey:   make(map[string]LedgerEntry),
		}
		r.accounts[accountID] = st
	}
	return st
}

func (r *MemoryRepo) Post(ctx context.Context, entry LedgerEntry, allowNegative bool) (LedgerEntry, Balance, error) {
	_ = ctx
	st := r.account(entry.AccountID, entry.Currency)

	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.byKey[entry.IdempotencyKey]; ok {
		return existing, st.balance, nil
	}

	next := st.balance.BalanceMinor + entry.AmountMinor
	if next < 0 && !allowNegative {
		return LedgerEntry{}, Balance{}, ErrInsufficientFunds
	}

	st.entries = append(st.entries, entry)
	st.byKey[entry.IdempotencyKey] = entry
	st.balance.BalanceMinor = next
	if st.balance.Currency == "" {
		st.balance.Currency = entry.Currency
	}
	st.balance.UpdatedAt = entry.CreatedAt

	return entry, st.balance, nil
}

func (r *MemoryRepo) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	_ = ctx
	r.mu.Lock()
	st, ok := r.accounts[accountID]
	r.mu.Unlock()
	if !ok {
		return Balance{AccountID: accountID}, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.balance, nil
}

func (r *MemoryRepo) ListEntries(ctx context.Context, accountID string, limit int) ([]LedgerEntry, error) {
	_ = ctx
	r.mu.Lock()
	st, ok := r.accounts[accountID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// Newest first.
	out := make([]LedgerEntry, 0, len(st.entries))
	for i := len(st.entries) - 1; i >= 0; i-- {
		out = append(out, st.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// seed is a test helper to preload a balance without a ledger entry.
func (r *MemoryRepo) seed(accountID, currency string, balanceMinor int64, at time.Time) {
	st := r.account(accountID, currency)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.balance.BalanceMinor = balanceMinor
	st.balance.UpdatedAt = at
}
