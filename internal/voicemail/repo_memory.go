package voicemail

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository.
//
// NOTE: not intended for production; replace with a Postgres
// implementation backed by a voicemail_recordings table.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]Recording
	bySid map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Recording),
		bySid: make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.RecordingID] = rec
	if rec.RecordingSid != "" {
		r.bySid[rec.RecordingSid] = rec.RecordingID
	}
	return nil
}

func (r *MemoryRepo) FindBySid(ctx context.Context, recordingSid string) (Recording, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bySid[recordingSid]
	if !ok {
		return Recording{}, false, nil
	}
	rec, ok := r.byID[id]
	return rec, ok, nil
}

func (r *MemoryRepo) Finalize(ctx context.Context, recordingSid string, durationSeconds int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bySid[recordingSid]
	if !ok {
		return false, ErrNotFound
	}
	rec := r.byID[id]
	if rec.Status == StatusFinalized {
		return false, nil
	}
	rec.DurationSeconds = durationSeconds
	rec.Status = StatusFinalized
	r.byID[id] = rec
	return true, nil
}

func (r *MemoryRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recording
	for _, rec := range r.byID {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, accountID, recordingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[recordingID]
	if !ok || rec.AccountID != accountID {
		return ErrNotFound
	}
	rec.Read = true
	r.byID[recordingID] = rec
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, accountID, recordingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[recordingID]
	if !ok || rec.AccountID != accountID {
		return ErrNotFound
	}
	delete(r.byID, recordingID)
	if rec.RecordingSid != "" {
		delete(r.bySid, rec.RecordingSid)
	}
	return nil
}
