package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/plan"
	"virtualphone-platform/internal/pricing"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/internal/wallet"
	"virtualphone-platform/pkg/logger"
	"virtualphone-platform/pkg/utils"
)

var ErrNotTerminal = errors.New("billing: session is not terminal")

// Engine settles wallet charges for terminated call sessions.
//
// Guarantees:
// - At most one settlement per session. The session's billed flag is the
//   compare-and-set gate; the ledger idempotency key (= session id) is
//   the backstop should a retry race past the gate.
// - Settlement never blocks on balance: the call already happened, so the
//   debit posts even if it overdraws. Gating of future calls on a low
//   balance belongs to the initiation path, not here.
//
// Billing rules (mirroring platform pricing):
// - Inbound calls are free.
// - Only completed calls with positive duration are charged.
// - An active plan with remaining allowance absorbs the minutes at zero
//   wallet cost, consuming the allowance under the same idempotency key.
type Engine struct {
	sessions calls.Store
	numbers  registry.Repository
	rates    *pricing.Service
	plans    *plan.Service
	wallet   *wallet.Service

	clock func() time.Time
}

func NewEngine(sessions calls.Store, numbers registry.Repository, rates *pricing.Service, plans *plan.Service, w *wallet.Service) *Engine {
	return &Engine{
		sessions: sessions,
		numbers:  numbers,
		rates:    rates,
		plans:    plans,
		wallet:   w,
		clock:    time.Now,
	}
}

// Settlement describes the outcome of one settlement attempt.
type Settlement struct {
	SessionID string

	// Duplicate is true when the session was already billed; nothing was
	// written.
	Duplicate bool

	// CoveredByPlan is true when plan minutes absorbed the charge.
	CoveredByPlan bool

	BillableMinutes int
	CostMinor       int64
	Currency        string
}

// Settle computes and applies the wallet debit for a terminated session.
func (e *Engine) Settle(ctx context.Context, s calls.Session) (Settlement, error) {
	log := logger.From(ctx)

	if !s.Status.IsTerminal() {
		return Settlement{}, ErrNotTerminal
	}

	changed, err := e.sessions.MarkBilled(ctx, s.SessionID)
	if err != nil {
		return Settlement{}, fmt.Errorf("billing: billed flag cas failed: %w", err)
	}
	if !changed {
		utils.SettlementsTotal.WithLabelValues("duplicate").Inc()
		return Settlement{SessionID: s.SessionID, Duplicate: true}, nil
	}

	out := Settlement{SessionID: s.SessionID}

	// Free paths: inbound, not completed, or no talk time.
	if s.Direction == calls.DirectionInbound || s.Status != calls.StatusCompleted || s.DurationSeconds <= 0 {
		utils.SettlementsTotal.WithLabelValues("free").Inc()
		return out, nil
	}

	// The owned number placing the call selects the pricing bucket.
	owned, ok, err := e.numbers.FindByNumber(ctx, s.From)
	if err != nil {
		return Settlement{}, fmt.Errorf("billing: registry lookup failed: %w", err)
	}
	if !ok {
		log.Warn("settlement: number not in registry, no charge", "session_id", s.SessionID, "from", s.From)
		utils.SettlementsTotal.WithLabelValues("free").Inc()
		return out, nil
	}

	cost, err := e.rates.CalculateCallCost(ctx, pricing.CallCostRequest{
		CountryCode:     owned.CountryCode,
		DurationSeconds: s.DurationSeconds,
		At:              e.clock().UTC(),
	})
	if err != nil {
		if errors.Is(err, pricing.ErrRateNotFound) {
			log.Warn("settlement: no rate for country, no charge", "session_id", s.SessionID, "country", owned.CountryCode)
			utils.SettlementsTotal.WithLabelValues("free").Inc()
			return out, nil
		}
		return Settlement{}, fmt.Errorf("billing: cost calculation failed: %w", err)
	}

	out.BillableMinutes = cost.BillableMinutes
	out.Currency = cost.Currency

	covered, err := e.plans.Cover(ctx, s.AccountID, owned.CountryCode, cost.BillableMinutes, s.SessionID)
	if err != nil {
		return Settlement{}, fmt.Errorf("billing: plan cover failed: %w", err)
	}
	if covered {
		out.CoveredByPlan = true
		utils.SettlementsTotal.WithLabelValues("plan").Inc()
		log.Info("settlement: plan minutes consumed",
			"session_id", s.SessionID, "account_id", s.AccountID, "minutes", cost.BillableMinutes)
		return out, nil
	}

	_, bal, err := e.wallet.Debit(ctx, s.AccountID, wallet.DebitRequest{
		AmountMinor:    cost.TotalMinor,
		Currency:       cost.Currency,
		ExternalRef:    s.SessionID,
		IdempotencyKey: s.SessionID,
		AllowNegative:  true,
	})
	if err != nil {
		utils.SettlementsTotal.WithLabelValues("error").Inc()
		return Settlement{}, fmt.Errorf("billing: wallet debit failed: %w", err)
	}

	out.CostMinor = cost.TotalMinor
	utils.SettlementsTotal.WithLabelValues("debited").Inc()
	log.Info("settlement: wallet debited",
		"session_id", s.SessionID,
		"account_id", s.AccountID,
		"minutes", cost.BillableMinutes,
		"cost_minor", cost.TotalMinor,
		"balance_minor", bal.BalanceMinor)
	return out, nil
}
