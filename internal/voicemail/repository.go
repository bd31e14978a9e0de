package voicemail

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("voicemail: recording not found")

// Repository persists voicemail recordings.
type Repository interface {
	Create(ctx context.Context, rec Recording) error

	// FindBySid locates a recording by the provider's recording sid.
	FindBySid(ctx context.Context, recordingSid string) (Recording, bool, error)

	// Finalize sets the duration and flips status to finalized. It reports
	// false without error when the recording is already finalized; the
	// duration is written at most once.
	Finalize(ctx context.Context, recordingSid string, durationSeconds int) (bool, error)

	ListByAccount(ctx context.Context, accountID string, limit int) ([]Recording, error)
	MarkRead(ctx context.Context, accountID, recordingID string) error
	Delete(ctx context.Context, accountID, recordingID string) error
}
