package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Record is the archived, user-facing view of a settled call. Sessions are
// never deleted; after settlement they are copied here for history
// listing and reporting.
type Record struct {
	CallID         string `json:"call_id" db:"call_id"`
	AccountID      string `json:"account_id" db:"account_id"`
	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	DurationSeconds int   `json:"duration_seconds" db:"duration_seconds"`
	CostMinor       int64 `json:"cost_minor" db:"cost_minor"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// HistoryStore is append-only; archived records are immutable.
type HistoryStore interface {
	Append(ctx context.Context, r Record) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Record, error)
}

// MemoryHistory is an in-memory HistoryStore for tests and early development.
type MemoryHistory struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Append(ctx context.Context, r Record) error {
	_ = ctx
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *MemoryHistory) ListByAccount(ctx context.Context, accountID string, limit int) ([]Record, error) {
	_ = ctx
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Record
	for _, r := range h.records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
