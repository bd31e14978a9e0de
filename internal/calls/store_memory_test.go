package calls

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newSession(id, extID string) Session {
	return Session{
		SessionID:      id,
		ExternalCallID: extID,
		AccountID:      "acct-1",
		From:           "+15551234567",
		To:             "+447700900123",
		Direction:      DirectionOutbound,
		Status:         StatusInitiated,
		StartedAt:      time.Unix(1700000000, 0).UTC(),
	}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Create(ctx, newSession("s1", "CA1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := st.Create(ctx, newSession("s1", "CA1")); err == nil {
		t.Fatalf("duplicate create must fail")
	}

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ExternalCallID != "CA1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if _, err := st.Get(ctx, "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_FindByExternalCallID(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Create(ctx, newSession("s1", "")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// External id attached later via Update (outbound connect path).
	if _, err := st.Update(ctx, "s1", func(s *Session) error {
		s.ExternalCallID = "CA42"
		return nil
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, ok, err := st.FindByExternalCallID(ctx, "CA42")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.SessionID != "s1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	_, ok, _ = st.FindByExternalCallID(ctx, "")
	if ok {
		t.Fatalf("empty external id must not resolve")
	}
}

func TestMemoryStore_UpdateRejectedLeavesSessionUntouched(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Create(ctx, newSession("s1", "CA1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := st.Update(ctx, "s1", func(s *Session) error {
		s.Status = StatusCompleted
		return ErrStaleTransition
	})
	if err != ErrStaleTransition {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}

	got, _ := st.Get(ctx, "s1")
	if got.Status != StatusInitiated {
		t.Fatalf("rejected update must not write, got %q", got.Status)
	}
}

func TestMemoryStore_MarkBilledOnce(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Create(ctx, newSession("s1", "CA1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	changed, err := st.MarkBilled(ctx, "s1")
	if err != nil || !changed {
		t.Fatalf("first mark must change, got changed=%v err=%v", changed, err)
	}
	changed, err = st.MarkBilled(ctx, "s1")
	if err != nil || changed {
		t.Fatalf("second mark must be a no-op, got changed=%v err=%v", changed, err)
	}
}

func TestMemoryStore_MarkBilledConcurrent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Create(ctx, newSession("s1", "CA1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const n = 32
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := st.MarkBilled(ctx, "s1")
			if err != nil {
				t.Errorf("mark billed failed: %v", err)
				return
			}
			results <- changed
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for changed := range results {
		if changed {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one goroutine must win the billed CAS, got %d", wins)
	}
}
