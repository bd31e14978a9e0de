package telephony

import (
	"context"
	"fmt"
	"sync"
)

// FakeProvider is a deterministic Provider for tests and local runs
// without provider credentials.
type FakeProvider struct {
	mu      sync.Mutex
	counter int
	hangups []string
}

func NewFakeProvider() *FakeProvider { return &FakeProvider{} }

func (p *FakeProvider) Name() string { return "fake" }

func (p *FakeProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *FakeProvider) Connect(ctx context.Context, req ConnectRequest) (ConnectResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	return ConnectResult{ExternalCallID: fmt.Sprintf("CA-fake-%d", p.counter)}, nil
}

func (p *FakeProvider) Hangup(ctx context.Context, externalCallID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hangups = append(p.hangups, externalCallID)
	return nil
}

func (p *FakeProvider) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter++
	return SendMessageResult{ExternalMessageID: fmt.Sprintf("SM-fake-%d", p.counter)}, nil
}

// Hangups returns the external ids hung up so far.
func (p *FakeProvider) Hangups() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.hangups))
	copy(out, p.hangups)
	return out
}
