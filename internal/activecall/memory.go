package activecall

import (
	"context"
	"errors"
	"sync"
)

// MemoryIndex is an in-process Index for tests and single-node development.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]string)}
}

func (i *MemoryIndex) Put(ctx context.Context, externalCallID, sessionID string) error {
	_ = ctx
	if externalCallID == "" || sessionID == "" {
		return errors.New("activecall: external call id and session id required")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[externalCallID] = sessionID
	return nil
}

func (i *MemoryIndex) Get(ctx context.Context, externalCallID string) (string, bool, error) {
	_ = ctx
	i.mu.RLock()
	defer i.mu.RUnlock()
	sessionID, ok := i.entries[externalCallID]
	return sessionID, ok, nil
}

func (i *MemoryIndex) Delete(ctx context.Context, externalCallID string) error {
	_ = ctx
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.entries, externalCallID)
	return nil
}

// Len reports the number of live entries. Test helper.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}
