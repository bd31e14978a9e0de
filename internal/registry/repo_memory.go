package registry

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
//
// NOTE: This is not intended for production; replace with Postgres implementation.
type MemoryRepo struct {
	mu      sync.RWMutex
	numbers map[string]OwnedNumber // keyed by phone number
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{numbers: make(map[string]OwnedNumber)}
}

func (r *MemoryRepo) Put(n OwnedNumber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.numbers[n.PhoneNumber] = n
}

func (r *MemoryRepo) FindByNumber(ctx context.Context, phoneNumber string) (OwnedNumber, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.numbers[phoneNumber]
	if !ok || n.Status != NumberStatusAssigned {
		return OwnedNumber{}, false, nil
	}
	return n, true, nil
}
