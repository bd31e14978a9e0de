package sms

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is a stored SMS. ExternalMessageID is the provider's sid and
// doubles as the idempotency key for inbound delivery retries.
type Message struct {
	MessageID         string    `json:"message_id"`
	ExternalMessageID string    `json:"external_message_id"`
	AccountID         string    `json:"account_id"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Body              string    `json:"body"`
	Direction         Direction `json:"direction"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"created_at"`
}
