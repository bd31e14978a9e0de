package voicemail

import (
	"context"
	"testing"
	"time"

	"virtualphone-platform/internal/notify"
)

func actionEvent(sid string) ActionEvent {
	return ActionEvent{
		SessionID:    "s1",
		AccountID:    "acct-1",
		From:         "+447700900123",
		To:           "+15551234567",
		RecordingSid: sid,
		RecordingURL: "https://provider.example/recordings/" + sid,
	}
}

func TestReconciler_TwoPhaseCapture(t *testing.T) {
	repo := NewMemoryRepo()
	rec := &notify.Recorder{}
	r := NewReconciler(repo, rec, 10*time.Minute)
	ctx := context.Background()

	created, err := r.RecordAction(ctx, actionEvent("RE1"))
	if err != nil {
		t.Fatalf("record action failed: %v", err)
	}
	if created.Status != StatusPending || created.DurationSeconds != 0 {
		t.Fatalf("phase 1 must create pending with zero duration, got %s/%d", created.Status, created.DurationSeconds)
	}

	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 42, Status: "completed"}); err != nil {
		t.Fatalf("record status failed: %v", err)
	}

	got, found, _ := repo.FindBySid(ctx, "RE1")
	if !found {
		t.Fatalf("recording missing")
	}
	if got.Status != StatusFinalized || got.DurationSeconds != 42 {
		t.Fatalf("expected finalized/42, got %s/%d", got.Status, got.DurationSeconds)
	}

	events := rec.Events()
	if len(events) != 1 || events[0].Event.Type != notify.EventVoicemailReceived {
		t.Fatalf("expected one voicemail_received event, got %+v", events)
	}
}

func TestReconciler_DuplicateFinalizeIsNoop(t *testing.T) {
	repo := NewMemoryRepo()
	r := NewReconciler(repo, notify.Noop{}, 10*time.Minute)
	ctx := context.Background()

	if _, err := r.RecordAction(ctx, actionEvent("RE1")); err != nil {
		t.Fatalf("record action failed: %v", err)
	}
	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 42, Status: "completed"}); err != nil {
		t.Fatalf("first status failed: %v", err)
	}
	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 999, Status: "completed"}); err != nil {
		t.Fatalf("duplicate status failed: %v", err)
	}

	got, _, _ := repo.FindBySid(ctx, "RE1")
	if got.DurationSeconds != 42 {
		t.Fatalf("duration must be written once, got %d", got.DurationSeconds)
	}
}

func TestReconciler_StatusBeforeActionMerges(t *testing.T) {
	repo := NewMemoryRepo()
	r := NewReconciler(repo, notify.Noop{}, 10*time.Minute)
	ctx := context.Background()

	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 17, Status: "completed"}); err != nil {
		t.Fatalf("early status failed: %v", err)
	}

	created, err := r.RecordAction(ctx, actionEvent("RE1"))
	if err != nil {
		t.Fatalf("record action failed: %v", err)
	}
	if created.Status != StatusFinalized || created.DurationSeconds != 17 {
		t.Fatalf("buffered duration must merge on phase 1, got %s/%d", created.Status, created.DurationSeconds)
	}

	got, _, _ := repo.FindBySid(ctx, "RE1")
	if got.Status != StatusFinalized || got.DurationSeconds != 17 {
		t.Fatalf("store must reflect the merge, got %s/%d", got.Status, got.DurationSeconds)
	}
}

func TestReconciler_NonCompletedStatusDoesNotFinalize(t *testing.T) {
	repo := NewMemoryRepo()
	r := NewReconciler(repo, notify.Noop{}, 10*time.Minute)
	ctx := context.Background()

	if _, err := r.RecordAction(ctx, actionEvent("RE1")); err != nil {
		t.Fatalf("record action failed: %v", err)
	}

	// in-progress and failed carry no usable duration; neither may
	// consume the single finalize.
	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 0, Status: "in-progress"}); err != nil {
		t.Fatalf("in-progress status failed: %v", err)
	}
	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 0, Status: "failed"}); err != nil {
		t.Fatalf("failed status failed: %v", err)
	}

	got, _, _ := repo.FindBySid(ctx, "RE1")
	if got.Status != StatusPending || got.DurationSeconds != 0 {
		t.Fatalf("non-completed status must not finalize, got %s/%d", got.Status, got.DurationSeconds)
	}

	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 42, Status: "completed"}); err != nil {
		t.Fatalf("completed status failed: %v", err)
	}
	got, _, _ = repo.FindBySid(ctx, "RE1")
	if got.Status != StatusFinalized || got.DurationSeconds != 42 {
		t.Fatalf("completed event must win the finalize, got %s/%d", got.Status, got.DurationSeconds)
	}

	// an early non-completed event must not be buffered either
	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE2", DurationSeconds: 5, Status: "in-progress"}); err != nil {
		t.Fatalf("early in-progress status failed: %v", err)
	}
	created, err := r.RecordAction(ctx, actionEvent("RE2"))
	if err != nil {
		t.Fatalf("record action failed: %v", err)
	}
	if created.Status != StatusPending || created.DurationSeconds != 0 {
		t.Fatalf("non-completed status must not buffer, got %s/%d", created.Status, created.DurationSeconds)
	}
}

func TestReconciler_BufferedStatusExpires(t *testing.T) {
	repo := NewMemoryRepo()
	r := NewReconciler(repo, notify.Noop{}, 10*time.Minute)
	ctx := context.Background()

	now := time.Unix(1700000000, 0).UTC()
	r.clock = func() time.Time { return now }

	if err := r.RecordStatus(ctx, StatusEvent{RecordingSid: "RE1", DurationSeconds: 17, Status: "completed"}); err != nil {
		t.Fatalf("early status failed: %v", err)
	}

	now = now.Add(11 * time.Minute)

	created, err := r.RecordAction(ctx, actionEvent("RE1"))
	if err != nil {
		t.Fatalf("record action failed: %v", err)
	}
	if created.Status != StatusPending || created.DurationSeconds != 0 {
		t.Fatalf("expired buffer must not merge, got %s/%d", created.Status, created.DurationSeconds)
	}
}
