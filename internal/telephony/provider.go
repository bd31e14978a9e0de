package telephony

import (
	"context"
	"time"
)

// Provider defines the provider-agnostic interface used by the call path.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Keep request/response types provider-agnostic; store provider raw
//   payloads in metadata if needed.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// Connect asks the provider to place an outbound leg. The returned
	// external call id is what the provider will echo in every status
	// callback for this call.
	Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error)

	// Hangup terminates an in-flight call at the provider.
	Hangup(ctx context.Context, externalCallID string) error

	SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResult, error)
}

// ConnectRequest represents an outbound call to be placed by the provider.
type ConnectRequest struct {
	// From and To are E.164 where possible.
	From string `json:"from"`
	To   string `json:"to"`

	// StatusCallbackURL receives call-status events for this call.
	StatusCallbackURL string `json:"status_callback_url"`

	RequestedAt time.Time `json:"requested_at"`
}

type ConnectResult struct {
	// ExternalCallID is the provider's unique identifier for this call.
	ExternalCallID string `json:"external_call_id"`
}

type SendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type SendMessageResult struct {
	ExternalMessageID string `json:"external_message_id"`
}
