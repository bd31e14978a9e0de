package calls

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps sessions in process memory with per-session locking.
//
// NOTE: This is not intended for production; replace with a Postgres
// implementation using optimistic row versions. The locking discipline
// (serialize per session, never globally across updates) is the contract
// any replacement must keep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionSlot
	byExtID  map[string]string // external_call_id -> session_id
}

type sessionSlot struct {
	mu sync.Mutex
	s  Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionSlot),
		byExtID:  make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	_ = ctx
	if s.SessionID == "" {
		return errors.New("calls: session_id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.SessionID]; exists {
		return errors.New("calls: session already exists")
	}
	m.sessions[s.SessionID] = &sessionSlot{s: s}
	if s.ExternalCallID != "" {
		m.byExtID[s.ExternalCallID] = s.SessionID
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (Session, error) {
	_ = ctx
	slot, err := m.slot(sessionID)
	if err != nil {
		return Session{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.s, nil
}

func (m *MemoryStore) FindByExternalCallID(ctx context.Context, externalCallID string) (Session, bool, error) {
	_ = ctx
	if externalCallID == "" {
		return Session{}, false, nil
	}

	m.mu.RLock()
	sessionID, ok := m.byExtID[externalCallID]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}

	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (m *MemoryStore) Update(ctx context.Context, sessionID string, fn func(*Session) error) (Session, error) {
	_ = ctx
	slot, err := m.slot(sessionID)
	if err != nil {
		return Session{}, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	next := slot.s
	if err := fn(&next); err != nil {
		return Session{}, err
	}

	prevExt := slot.s.ExternalCallID
	slot.s = next

	if next.ExternalCallID != "" && next.ExternalCallID != prevExt {
		m.mu.Lock()
		m.byExtID[next.ExternalCallID] = sessionID
		m.mu.Unlock()
	}
	return next, nil
}

func (m *MemoryStore) MarkBilled(ctx context.Context, sessionID string) (bool, error) {
	_ = ctx
	slot, err := m.slot(sessionID)
	if err != nil {
		return false, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.s.Billed {
		return false, nil
	}
	slot.s.Billed = true
	return true, nil
}

func (m *MemoryStore) slot(sessionID string) (*sessionSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return slot, nil
}
