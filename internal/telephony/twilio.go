package telephony

import (
	"context"
	"errors"
)

// TwilioProvider is a placeholder implementation.
// TODO: wire in Twilio REST client + credentials from config.
type TwilioProvider struct {
	accountSID string
	authToken  string
}

func NewTwilioProvider(accountSID, authToken string) *TwilioProvider {
	return &TwilioProvider{accountSID: accountSID, authToken: authToken}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	// TODO: call a lightweight Twilio endpoint.
	return nil
}

func (p *TwilioProvider) Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error) {
	return ConnectResult{}, errors.New("telephony: twilio Connect not implemented")
}

func (p *TwilioProvider) Hangup(ctx context.Context, externalCallID string) error {
	return errors.New("telephony: twilio Hangup not implemented")
}

func (p *TwilioProvider) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResult, error) {
	return SendMessageResult{}, errors.New("telephony: twilio SendMessage not implemented")
}
