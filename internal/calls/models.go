package calls

import "time"

// Session is the authoritative record of one call.
//
// SessionID is the internal, stable primary key. ExternalCallID is the
// provider-assigned identifier (Twilio CallSid); it is empty for outbound
// calls until the connect step returns it and is used for correlation
// only, never as a primary key.
//
// Invariants:
// - Status only moves forward along the rank order (see CanTransition).
// - Billed transitions false -> true exactly once (Store.MarkBilled).
type Session struct {
	SessionID      string `json:"session_id" db:"session_id"`
	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`
	AccountID      string `json:"account_id" db:"account_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Direction Direction `json:"direction" db:"direction"`
	Status    Status    `json:"status" db:"status"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is derived once, when the session enters a
	// terminal state. Zero for calls that never reached in_progress.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	Billed bool `json:"billed" db:"billed"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no_answer"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// statusRank defines the partial order used by the forward-only guard.
// All terminal states share the highest rank; a session may skip ranks
// (e.g., the first observed event for a reconstructed inbound call can be
// "busy") but can never move to an equal or lower rank.
var statusRank = map[Status]int{
	StatusInitiated:  0,
	StatusRinging:    1,
	StatusInProgress: 2,
	StatusCompleted:  3,
	StatusBusy:       3,
	StatusNoAnswer:   3,
	StatusFailed:     3,
	StatusCanceled:   3,
}

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	return statusRank[s] == 3
}

// IsValid reports whether s is a known session status.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a session may move from one status to
// another. Backward and repeated transitions are rejected so a retried or
// re-ordered provider event cannot resurrect an already-settled session.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	return statusRank[to] > statusRank[from]
}

// ParseProviderStatus maps a provider CallStatus value onto the session
// status set. Provider statuses that precede signaling ("queued") map to
// initiated; "no-answer" is normalized to no_answer.
func ParseProviderStatus(raw string) (Status, bool) {
	switch raw {
	case "queued", "initiated":
		return StatusInitiated, true
	case "ringing":
		return StatusRinging, true
	case "in-progress", "in_progress", "answered":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	case "busy":
		return StatusBusy, true
	case "no-answer", "no_answer":
		return StatusNoAnswer, true
	case "failed":
		return StatusFailed, true
	case "canceled":
		return StatusCanceled, true
	default:
		return "", false
	}
}
