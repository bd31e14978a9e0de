package billing

import (
	"context"
	"testing"
	"time"

	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/plan"
	"virtualphone-platform/internal/pricing"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/wallet"
)

type fixture struct {
	engine   *Engine
	sessions *calls.MemoryStore
	wallet   *wallet.Service
	walletDB *wallet.MemoryRepo
	plans    *plan.MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Unix(1700000000, 0).UTC()

	sessions := calls.NewMemoryStore()

	numbers := registry.NewMemoryRepo()
	numbers.Put(registry.OwnedNumber{
		ID: "n1", AccountID: "acct-1", PhoneNumber: "+15551234567",
		CountryCode: "US", Status: registry.NumberStatusAssigned,
	})

	rates := pricing.NewService(&pricing.MemoryRepo{Rates: []pricing.MinuteRate{{
		ID: "r1", CountryCode: "US", Currency: "USD",
		RatePerMinuteMinor: 150, BillingIncrementSeconds: 60,
		Status: pricing.RateStatusActive, EffectiveFrom: now.Add(-time.Hour),
	}}})

	planRepo := plan.NewMemoryRepo()
	walletRepo := wallet.NewMemoryRepo()
	walletSvc := wallet.NewService(walletRepo)

	return &fixture{
		engine:   NewEngine(sessions, numbers, rates, plan.NewService(planRepo), walletSvc),
		sessions: sessions,
		wallet:   walletSvc,
		walletDB: walletRepo,
		plans:    planRepo,
	}
}

func terminalSession(id string, status calls.Status, direction calls.Direction, duration int) calls.Session {
	ended := time.Unix(1700000200, 0).UTC()
	return calls.Session{
		SessionID:      id,
		ExternalCallID: "CA-" + id,
		AccountID:      "acct-1",
		From:           "+15551234567",
		To:             "+447700900123",
		Direction:      direction,
		Status:         status,
		StartedAt:      time.Unix(1700000000, 0).UTC(),
		EndedAt:        &ended,
		DurationSeconds: duration,
	}
}

func (f *fixture) create(t *testing.T, s calls.Session) calls.Session {
	t.Helper()
	if err := f.sessions.Create(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestSettle_OutboundCompletedDebitsWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, terminalSession("s1", calls.StatusCompleted, calls.DirectionOutbound, 137))

	res, err := f.engine.Settle(ctx, s)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if res.BillableMinutes != 3 {
		t.Fatalf("expected 3 billable minutes for 137s, got %d", res.BillableMinutes)
	}
	if res.CostMinor != 450 {
		t.Fatalf("expected 450, got %d", res.CostMinor)
	}

	bal, _ := f.wallet.GetBalance(ctx, "acct-1")
	if bal.BalanceMinor != -450 {
		t.Fatalf("settlement must post even when it overdraws, got %d", bal.BalanceMinor)
	}

	entries, _ := f.wallet.ListEntries(ctx, "acct-1", 10)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	if entries[0].IdempotencyKey != "s1" {
		t.Fatalf("ledger entry must be keyed by session id, got %q", entries[0].IdempotencyKey)
	}
}

func TestSettle_DuplicateIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, terminalSession("s1", calls.StatusCompleted, calls.DirectionOutbound, 137))

	if _, err := f.engine.Settle(ctx, s); err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	res, err := f.engine.Settle(ctx, s)
	if err != nil {
		t.Fatalf("second settle failed: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("second settle must report duplicate")
	}

	entries, _ := f.wallet.ListEntries(ctx, "acct-1", 10)
	if len(entries) != 1 {
		t.Fatalf("duplicate settle must not add entries, got %d", len(entries))
	}
}

func TestSettle_InboundFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, terminalSession("s1", calls.StatusCompleted, calls.DirectionInbound, 300))

	res, err := f.engine.Settle(ctx, s)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if res.CostMinor != 0 {
		t.Fatalf("inbound calls are free, got %d", res.CostMinor)
	}
	entries, _ := f.wallet.ListEntries(ctx, "acct-1", 10)
	if len(entries) != 0 {
		t.Fatalf("no ledger entry for free calls, got %d", len(entries))
	}
}

func TestSettle_NonCompletedTerminalFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, status := range []calls.Status{calls.StatusBusy, calls.StatusNoAnswer, calls.StatusFailed, calls.StatusCanceled} {
		s := f.create(t, terminalSession(string(rune('a'+i)), status, calls.DirectionOutbound, 0))
		res, err := f.engine.Settle(ctx, s)
		if err != nil {
			t.Fatalf("settle %s failed: %v", status, err)
		}
		if res.CostMinor != 0 {
			t.Fatalf("%s must be free, got %d", status, res.CostMinor)
		}
	}

	entries, _ := f.wallet.ListEntries(ctx, "acct-1", 10)
	if len(entries) != 0 {
		t.Fatalf("no ledger entries expected, got %d", len(entries))
	}
}

func TestSettle_PlanCoversMinutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.plans.Put(plan.Plan{
		ID: "p1", AccountID: "acct-1", CountryCode: "US",
		MinutesLimit: 100, MinutesUsed: 0,
		Status: plan.PlanStatusActive, ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	})
	s := f.create(t, terminalSession("s1", calls.StatusCompleted, calls.DirectionOutbound, 137))

	res, err := f.engine.Settle(ctx, s)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if !res.CoveredByPlan {
		t.Fatalf("plan must cover the minutes")
	}
	if res.CostMinor != 0 {
		t.Fatalf("plan-covered calls cost zero, got %d", res.CostMinor)
	}
	if p, _ := f.plans.Get("p1"); p.MinutesUsed != 3 {
		t.Fatalf("plan usage must move by 3, got %d", p.MinutesUsed)
	}
	entries, _ := f.wallet.ListEntries(ctx, "acct-1", 10)
	if len(entries) != 0 {
		t.Fatalf("plan-covered calls write no ledger entry, got %d", len(entries))
	}
}

func TestSettle_UnknownRateNoCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := terminalSession("s1", calls.StatusCompleted, calls.DirectionOutbound, 60)
	s.From = "+49301234567" // not in the registry
	f.create(t, s)

	res, err := f.engine.Settle(ctx, s)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if res.CostMinor != 0 {
		t.Fatalf("unattributable numbers must not charge, got %d", res.CostMinor)
	}
}

func TestSettle_NonTerminalRejected(t *testing.T) {
	f := newFixture(t)
	s := f.create(t, calls.Session{
		SessionID: "s1", AccountID: "acct-1", Status: calls.StatusRinging,
		Direction: calls.DirectionOutbound, From: "+15551234567", To: "+447700900123",
		StartedAt: time.Unix(1700000000, 0).UTC(),
	})

	if _, err := f.engine.Settle(context.Background(), s); err != ErrNotTerminal {
		t.Fatalf("expected ErrNotTerminal, got %v", err)
	}
}
