package notify

import "context"

// Event is a user-facing realtime notification.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

const (
	EventCallEnded         = "call_ended"
	EventMessageReceived   = "message_received"
	EventVoicemailReceived = "voicemail_received"
)

// Notifier is the delivery sink. Publishing is best-effort: the
// reconciliation core must never fail because a client is not connected.
type Notifier interface {
	Publish(ctx context.Context, accountID string, event Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Publish(ctx context.Context, accountID string, event Event) {}
