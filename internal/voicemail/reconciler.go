package voicemail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"virtualphone-platform/internal/notify"
	"virtualphone-platform/pkg/logger"
	"virtualphone-platform/pkg/utils"
)

// Reconciler captures voicemail duration in two phases. The provider
// signals "recording finished" before the recording is processed, so the
// true duration arrives in a separate, later callback that may be
// duplicated or reordered ahead of the first.
//
// Phase 1 (recording action): creates the recording with status=pending
// and duration 0.
// Phase 2 (recording status): finalizes the duration exactly once.
//
// A phase-2 event with no matching recording is buffered by recording
// sid for a bounded window and merged in when phase 1 lands; past the
// window it is dropped and the recording keeps duration 0.
type Reconciler struct {
	recordings Repository
	notifier   notify.Notifier

	window time.Duration
	clock  func() time.Time

	mu       sync.Mutex
	buffered map[string]bufferedStatus
}

type bufferedStatus struct {
	durationSeconds int
	receivedAt      time.Time
}

func NewReconciler(recordings Repository, notifier notify.Notifier, window time.Duration) *Reconciler {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Reconciler{
		recordings: recordings,
		notifier:   notifier,
		window:     window,
		clock:      time.Now,
		buffered:   make(map[string]bufferedStatus),
	}
}

// ActionEvent is the phase-1 callback, fired when the caller hangs up.
// Duration here is unreliable and ignored.
type ActionEvent struct {
	SessionID    string
	AccountID    string
	From         string
	To           string
	RecordingSid string
	RecordingURL string
}

// StatusEvent is the phase-2 callback, fired once the provider has
// processed the recording.
type StatusEvent struct {
	RecordingSid    string
	RecordingURL    string
	DurationSeconds int
	Status          string
}

// RecordAction creates the provisional recording and merges any buffered
// phase-2 duration that arrived ahead of it.
func (r *Reconciler) RecordAction(ctx context.Context, ev ActionEvent) (Recording, error) {
	log := logger.From(ctx)

	rec := Recording{
		RecordingID:  uuid.NewString(),
		RecordingSid: ev.RecordingSid,
		SessionID:    ev.SessionID,
		AccountID:    ev.AccountID,
		From:         ev.From,
		To:           ev.To,
		RecordingURL: ev.RecordingURL,
		Status:       StatusPending,
		CreatedAt:    r.clock().UTC(),
	}
	if err := r.recordings.Create(ctx, rec); err != nil {
		return Recording{}, fmt.Errorf("voicemail: create recording: %w", err)
	}

	if buf, ok := r.takeBuffered(ev.RecordingSid); ok {
		if _, err := r.recordings.Finalize(ctx, ev.RecordingSid, buf.durationSeconds); err != nil {
			return Recording{}, fmt.Errorf("voicemail: merge buffered duration: %w", err)
		}
		rec.DurationSeconds = buf.durationSeconds
		rec.Status = StatusFinalized
		log.Info("voicemail: merged early duration event",
			"recording_sid", ev.RecordingSid, "duration_seconds", buf.durationSeconds)
	}

	r.notifier.Publish(ctx, ev.AccountID, notify.Event{
		Type: notify.EventVoicemailReceived,
		Data: map[string]any{"recording_id": rec.RecordingID, "from": rec.From},
	})
	return rec, nil
}

// recordingStatusCompleted is the only provider recording status that
// carries a trustworthy duration.
const recordingStatusCompleted = "completed"

// RecordStatus finalizes the recording's duration. Only completed
// events finalize; unknown sids are buffered for the reconciliation
// window; duplicates are no-ops.
func (r *Reconciler) RecordStatus(ctx context.Context, ev StatusEvent) error {
	log := logger.From(ctx)

	if ev.Status != recordingStatusCompleted {
		log.Debug("voicemail: non-completed recording status ignored",
			"recording_sid", ev.RecordingSid, "status", ev.Status)
		return nil
	}

	_, found, err := r.recordings.FindBySid(ctx, ev.RecordingSid)
	if err != nil {
		return fmt.Errorf("voicemail: lookup by sid: %w", err)
	}
	if !found {
		r.buffer(ev.RecordingSid, ev.DurationSeconds)
		log.Debug("voicemail: duration event ahead of recording, buffered",
			"recording_sid", ev.RecordingSid)
		return nil
	}

	changed, err := r.recordings.Finalize(ctx, ev.RecordingSid, ev.DurationSeconds)
	if err != nil {
		return fmt.Errorf("voicemail: finalize: %w", err)
	}
	if !changed {
		log.Debug("voicemail: duplicate finalize ignored", "recording_sid", ev.RecordingSid)
		return nil
	}
	log.Info("voicemail: duration finalized",
		"recording_sid", ev.RecordingSid, "duration_seconds", ev.DurationSeconds)
	return nil
}

func (r *Reconciler) buffer(sid string, duration int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.buffered[sid] = bufferedStatus{durationSeconds: duration, receivedAt: r.clock()}
}

func (r *Reconciler) takeBuffered(sid string) (bufferedStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	buf, ok := r.buffered[sid]
	if ok {
		delete(r.buffered, sid)
	}
	return buf, ok
}

// sweepLocked drops buffered durations older than the window. Their
// recordings, if they ever materialize, keep duration 0.
func (r *Reconciler) sweepLocked() {
	cutoff := r.clock().Add(-r.window)
	for sid, buf := range r.buffered {
		if buf.receivedAt.Before(cutoff) {
			delete(r.buffered, sid)
			utils.VoicemailOrphans.Inc()
		}
	}
}
