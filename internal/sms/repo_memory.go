package sms

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository.
//
// NOTE: not intended for production; replace with a Postgres
// implementation backed by a messages table.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]Message
	byExt map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Message),
		byExt: make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.MessageID] = m
	if m.ExternalMessageID != "" {
		r.byExt[m.ExternalMessageID] = m.MessageID
	}
	return nil
}

func (r *MemoryRepo) FindByExternalID(ctx context.Context, externalMessageID string) (Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byExt[externalMessageID]
	if !ok {
		return Message{}, false, nil
	}
	m, ok := r.byID[id]
	return m, ok, nil
}

func (r *MemoryRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.byID {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, accountID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[messageID]
	if !ok || m.AccountID != accountID {
		return ErrNotFound
	}
	m.Read = true
	r.byID[messageID] = m
	return nil
}
