package activecall

import "context"

// Index is the ephemeral external-call-id -> session-id mapping used for
// O(1) webhook correlation.
//
// Ownership: entries are created at call initiation (Register) or by the
// correlator's fallback path, and torn down when the session reaches a
// terminal state. Implementations must provide atomic get/put/delete. The
// index is a correlation cache, never the source of truth: a miss falls
// back to the session store's external-id lookup.
type Index interface {
	Put(ctx context.Context, externalCallID, sessionID string) error
	Get(ctx context.Context, externalCallID string) (sessionID string, ok bool, err error)
	Delete(ctx context.Context, externalCallID string) error
}
