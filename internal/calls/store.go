package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("calls: session not found")

	// ErrStaleTransition marks a valid provider event that arrived out of
	// order. Callers treat it as non-fatal: expected under provider
	// retry and reordering.
	ErrStaleTransition = errors.New("calls: stale transition ignored")
)

// Store is the durable session record.
//
// Update and MarkBilled require serialized, per-session compare-and-set
// semantics: concurrent webhook deliveries for the same call must not
// interleave state writes, and no global lock is acceptable.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (Session, error)

	// FindByExternalCallID is the secondary correlation index. It covers
	// the case where the active-call index entry has already been torn
	// down or evicted but the session row still exists.
	FindByExternalCallID(ctx context.Context, externalCallID string) (Session, bool, error)

	// Update applies fn to the current session atomically. If fn returns
	// an error nothing is written.
	Update(ctx context.Context, sessionID string, fn func(*Session) error) (Session, error)

	// MarkBilled flips Billed false->true. Returns changed=false when the
	// session was already billed; billing treats that as a duplicate
	// settlement and does nothing.
	MarkBilled(ctx context.Context, sessionID string) (changed bool, err error)
}
