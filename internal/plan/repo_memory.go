package plan

import (
	"context"
	"errors"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and early development.
//
// NOTE: This is not intended for production; replace with Postgres implementation.
type MemoryRepo struct {
	mu    sync.Mutex
	plans map[string]*Plan
	// usage marks dedupe ConsumeMinutes per (plan, idempotency key)
	usage map[string]bool
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		plans: make(map[string]*Plan),
		usage: make(map[string]bool),
	}
}

func (r *MemoryRepo) Put(p Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.plans[p.ID] = &cp
}

// Get returns a copy of the stored plan. Test helper.
func (r *MemoryRepo) Get(planID string) (Plan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[planID]
	if !ok {
		return Plan{}, false
	}
	return *p, true
}

func (r *MemoryRepo) FindActive(ctx context.Context, accountID, countryCode string) (Plan, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.plans {
		if p.AccountID == accountID && p.CountryCode == countryCode && p.Status == PlanStatusActive {
			return *p, true, nil
		}
	}
	return Plan{}, false, nil
}

func (r *MemoryRepo) ConsumeMinutes(ctx context.Context, planID string, minutes int, idempotencyKey string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plans[planID]
	if !ok {
		return false, errors.New("plan: not found")
	}

	mark := planID + ":" + idempotencyKey
	if r.usage[mark] {
		// Already consumed under this key; still covered.
		return true, nil
	}

	if p.MinutesUsed+minutes > p.MinutesLimit {
		return false, nil
	}

	p.MinutesUsed += minutes
	r.usage[mark] = true
	return true, nil
}

func (r *MemoryRepo) MarkExpired(ctx context.Context, planID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.plans[planID]; ok {
		p.Status = PlanStatusExpired
	}
	return nil
}
