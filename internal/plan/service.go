package plan

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidArgument = errors.New("plan: invalid argument")

// Repository abstracts plan persistence.
//
// ConsumeMinutes must be atomic per plan and idempotent per key: a
// redelivered settlement must not decrement the allowance twice.
type Repository interface {
	// FindActive returns the active plan for an account+country, if any.
	FindActive(ctx context.Context, accountID, countryCode string) (Plan, bool, error)

	// ConsumeMinutes adds minutes to the plan's usage counter under the
	// given idempotency key. Returns false when the allowance cannot
	// cover the minutes (caller falls through to wallet billing).
	ConsumeMinutes(ctx context.Context, planID string, minutes int, idempotencyKey string) (bool, error)

	// MarkExpired flips an active plan to expired.
	MarkExpired(ctx context.Context, planID string) error
}

// Service decides whether a call's minutes are covered by a plan.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Cover attempts to cover billable minutes from the account's plan for
// the given country. Returns true when the plan absorbed the minutes and
// no wallet debit should happen. Expired plans are marked as such and do
// not cover.
func (s *Service) Cover(ctx context.Context, accountID, countryCode string, minutes int, idempotencyKey string) (bool, error) {
	if accountID == "" || countryCode == "" || idempotencyKey == "" {
		return false, ErrInvalidArgument
	}
	if minutes <= 0 {
		return false, nil
	}

	p, ok, err := s.repo.FindActive(ctx, accountID, countryCode)
	if err != nil || !ok {
		return false, err
	}

	if !p.ExpiresAt.After(s.clock().UTC()) {
		// Expired but not yet swept; mark and fall through to wallet.
		if err := s.repo.MarkExpired(ctx, p.ID); err != nil {
			return false, err
		}
		return false, nil
	}

	return s.repo.ConsumeMinutes(ctx, p.ID, minutes, idempotencyKey)
}

// HasAllowance reports whether an unexpired plan with remaining minutes
// exists. Read-only; used by the call-initiation gate, never by
// settlement.
func (s *Service) HasAllowance(ctx context.Context, accountID, countryCode string) (bool, error) {
	p, ok, err := s.repo.FindActive(ctx, accountID, countryCode)
	if err != nil || !ok {
		return false, err
	}
	if !p.ExpiresAt.After(s.clock().UTC()) {
		return false, nil
	}
	return p.MinutesUsed < p.MinutesLimit, nil
}
