package voicemail

import "time"

// Status of a stored recording. Duration is unknown until the provider's
// processing callback finalizes it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFinalized Status = "finalized"
)

// Recording is a user-facing voicemail artifact. SessionID is a weak
// reference for lookup only; the session may already be archived by the
// time the recording finalizes.
type Recording struct {
	RecordingID     string    `json:"recording_id"`
	RecordingSid    string    `json:"recording_sid"`
	SessionID       string    `json:"session_id,omitempty"`
	AccountID       string    `json:"account_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	RecordingURL    string    `json:"recording_url,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Status          Status    `json:"status"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}
