package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"virtualphone-platform/internal/activecall"
	"virtualphone-platform/internal/billing"
	"virtualphone-platform/internal/calls"
	"virtualphone-platform/internal/notify"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/pkg/logger"
	"virtualphone-platform/pkg/utils"
)

// Correlator resolves provider callbacks to call sessions and applies
// state transitions.
//
// Resolution order per event:
//  1. Active-call index (O(1) hit on the external call id).
//  2. Session store secondary index (covers an evicted index entry).
//  3. Fallback reconstruction: derive the owning account from the number
//     registry and synthesize a session. No billable event is ever
//     dropped for want of a pre-existing index entry.
//  4. Unresolvable events (both numbers unowned) are logged and
//     discarded; with no identifiable account they cannot affect billing.
//
// Every successful resolution upserts the index entry; terminal
// transitions tear it down and hand the session to billing settlement.
type Correlator struct {
	sessions calls.Store
	index    activecall.Index
	numbers  registry.Repository
	billing  *billing.Engine
	history  calls.HistoryStore
	notifier notify.Notifier

	clock func() time.Time

	onFinished func(ctx context.Context, s calls.Session)
}

func NewCorrelator(
	sessions calls.Store,
	index activecall.Index,
	numbers registry.Repository,
	engine *billing.Engine,
	history calls.HistoryStore,
	notifier notify.Notifier,
) *Correlator {
	return &Correlator{
		sessions: sessions,
		index:    index,
		numbers:  numbers,
		billing:  engine,
		history:  history,
		notifier: notifier,
		clock:    time.Now,
	}
}

// OnCallFinished registers a hook invoked after terminal teardown, e.g.
// to release a per-account concurrency slot. Must be set before serving.
func (c *Correlator) OnCallFinished(fn func(ctx context.Context, s calls.Session)) {
	c.onFinished = fn
}

// CallStatusEvent is a provider call-status callback, already parsed off
// the wire.
type CallStatusEvent struct {
	ExternalCallID  string
	RawStatus       string
	From            string
	To              string
	DurationSeconds int
}

// Register attaches a provider call id to a session the application
// created itself. Called by the outbound call path as soon as the
// connect step returns the id; this is the non-fallback path populating
// the active-call index.
func (c *Correlator) Register(ctx context.Context, externalCallID, sessionID string) error {
	if externalCallID == "" || sessionID == "" {
		return errors.New("webhook: external call id and session id required")
	}
	if _, err := c.sessions.Update(ctx, sessionID, func(s *calls.Session) error {
		s.ExternalCallID = externalCallID
		return nil
	}); err != nil {
		return fmt.Errorf("webhook: attach external id: %w", err)
	}
	if err := c.index.Put(ctx, externalCallID, sessionID); err != nil {
		return fmt.Errorf("webhook: index put: %w", err)
	}
	utils.ActiveCalls.Inc()
	return nil
}

// Lookup resolves an external call id through the index, then the
// session store. Used by callback paths that need attribution but apply
// no state transition (voicemail capture).
func (c *Correlator) Lookup(ctx context.Context, externalCallID string) (calls.Session, bool, error) {
	if sessionID, ok, err := c.index.Get(ctx, externalCallID); err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: index get: %w", err)
	} else if ok {
		s, err := c.sessions.Get(ctx, sessionID)
		if err == nil {
			return s, true, nil
		}
		if !errors.Is(err, calls.ErrNotFound) {
			return calls.Session{}, false, fmt.Errorf("webhook: session get: %w", err)
		}
		// Index pointed at a vanished session; fall through.
	}
	s, found, err := c.sessions.FindByExternalCallID(ctx, externalCallID)
	if err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: session find: %w", err)
	}
	return s, found, nil
}

// HandleCallStatus applies one call-status event. It never returns an
// error for logic-level conditions (correlation miss, stale transition,
// duplicate terminal); those are logged and absorbed so the webhook
// handler can always acknowledge.
func (c *Correlator) HandleCallStatus(ctx context.Context, ev CallStatusEvent) error {
	log := logger.From(ctx)

	status, ok := calls.ParseProviderStatus(ev.RawStatus)
	if !ok {
		log.Warn("call-status: unknown status discarded", "external_call_id", ev.ExternalCallID, "status", ev.RawStatus)
		return nil
	}

	s, found, err := c.resolve(ctx, ev)
	if err != nil {
		return err
	}
	if !found {
		utils.CorrelationMisses.Inc()
		log.Warn("call-status: correlation miss, event discarded",
			"external_call_id", ev.ExternalCallID, "from", ev.From, "to", ev.To)
		return nil
	}

	updated, err := c.sessions.Update(ctx, s.SessionID, func(s *calls.Session) error {
		if s.Status == status {
			return calls.ErrStaleTransition
		}
		if !calls.CanTransition(s.Status, status) {
			return calls.ErrStaleTransition
		}
		s.Status = status
		if status.IsTerminal() {
			now := c.clock().UTC()
			s.EndedAt = &now
			// Only a completed call carries talk time; every other
			// terminal path never connected.
			if status == calls.StatusCompleted {
				s.DurationSeconds = ev.DurationSeconds
			} else {
				s.DurationSeconds = 0
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, calls.ErrStaleTransition) {
			utils.StaleTransitions.Inc()
			log.Debug("call-status: stale transition ignored",
				"session_id", s.SessionID, "current", s.Status, "event", status)
			return nil
		}
		return fmt.Errorf("webhook: apply transition: %w", err)
	}

	if updated.Status.IsTerminal() {
		c.finishCall(ctx, updated)
	}
	return nil
}

// resolve finds or reconstructs the session for an event.
func (c *Correlator) resolve(ctx context.Context, ev CallStatusEvent) (calls.Session, bool, error) {
	if s, found, err := c.Lookup(ctx, ev.ExternalCallID); err != nil {
		return calls.Session{}, false, err
	} else if found {
		if err := c.index.Put(ctx, ev.ExternalCallID, s.SessionID); err != nil {
			return calls.Session{}, false, fmt.Errorf("webhook: index upsert: %w", err)
		}
		return s, true, nil
	}
	return c.reconstruct(ctx, ev)
}

// reconstruct synthesizes a session when no index or store entry exists.
// Direction is derived from ownership: a call to an owned number is
// inbound; a call from an owned number is outbound.
func (c *Correlator) reconstruct(ctx context.Context, ev CallStatusEvent) (calls.Session, bool, error) {
	log := logger.From(ctx)

	var (
		accountID string
		direction calls.Direction
	)
	if owned, ok, err := c.numbers.FindByNumber(ctx, ev.To); err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: registry lookup: %w", err)
	} else if ok {
		accountID, direction = owned.AccountID, calls.DirectionInbound
	} else if owned, ok, err := c.numbers.FindByNumber(ctx, ev.From); err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: registry lookup: %w", err)
	} else if ok {
		accountID, direction = owned.AccountID, calls.DirectionOutbound
	} else {
		return calls.Session{}, false, nil
	}

	s := calls.Session{
		SessionID:      uuid.NewString(),
		ExternalCallID: ev.ExternalCallID,
		AccountID:      accountID,
		From:           ev.From,
		To:             ev.To,
		Direction:      direction,
		Status:         calls.StatusInitiated,
		StartedAt:      c.clock().UTC(),
	}
	if err := c.sessions.Create(ctx, s); err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: create reconstructed session: %w", err)
	}
	if err := c.index.Put(ctx, ev.ExternalCallID, s.SessionID); err != nil {
		return calls.Session{}, false, fmt.Errorf("webhook: index put: %w", err)
	}
	utils.ActiveCalls.Inc()
	log.Info("call-status: session reconstructed from registry",
		"session_id", s.SessionID, "external_call_id", ev.ExternalCallID, "direction", direction)
	return s, true, nil
}

// finishCall tears down the index entry, settles billing, archives the
// session, and notifies the account. Settlement failures are logged, not
// propagated: the webhook must still be acknowledged, and the billed flag
// plus ledger idempotency make a later redelivery safe.
func (c *Correlator) finishCall(ctx context.Context, s calls.Session) {
	log := logger.From(ctx)

	if s.ExternalCallID != "" {
		if err := c.index.Delete(ctx, s.ExternalCallID); err != nil {
			log.Warn("call teardown: index delete failed", "external_call_id", s.ExternalCallID, "err", err)
		}
	}
	utils.ActiveCalls.Dec()

	var costMinor int64
	res, err := c.billing.Settle(ctx, s)
	if err != nil {
		log.Error("call teardown: settlement failed", "session_id", s.SessionID, "err", err)
	} else {
		costMinor = res.CostMinor
	}

	if err := c.history.Append(ctx, calls.Record{
		CallID:          s.SessionID,
		AccountID:       s.AccountID,
		ExternalCallID:  s.ExternalCallID,
		From:            s.From,
		To:              s.To,
		Direction:       s.Direction,
		Status:          s.Status,
		DurationSeconds: s.DurationSeconds,
		CostMinor:       costMinor,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
	}); err != nil {
		log.Error("call teardown: history append failed", "session_id", s.SessionID, "err", err)
	}

	c.notifier.Publish(ctx, s.AccountID, notify.Event{
		Type: notify.EventCallEnded,
		Data: map[string]any{
			"session_id":       s.SessionID,
			"status":           string(s.Status),
			"duration_seconds": s.DurationSeconds,
		},
	})

	if c.onFinished != nil {
		c.onFinished(ctx, s)
	}
}
