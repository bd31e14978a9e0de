package pricing

import (
	"context"
	"errors"
	"time"
)

// Service computes call costs from country-bucketed minute rates.
//
// Contract:
// - Pure calculation + repository lookups; no provider SDK calls.
// - Rounds up to the configured billing increment, never down.
type Service struct {
	repo  RateRepository
	clock func() time.Time
}

func NewService(repo RateRepository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CallCostRequest struct {
	// CountryCode is the pricing bucket of the number placing the call.
	CountryCode string

	// DurationSeconds is the call duration in seconds (billable seconds are derived).
	DurationSeconds int

	// At determines which effective rate to use. If zero, service clock is used.
	At time.Time
}

type CallCost struct {
	CountryCode string
	Currency    string

	BillableSeconds int
	BillableMinutes int

	RatePerMinuteMinor int64
	TotalMinor         int64
}

var (
	ErrRateNotFound      = errors.New("pricing: rate not found")
	ErrInvalidPricingReq = errors.New("pricing: invalid request")
)

// CalculateCallCost computes the call cost for a given duration.
func (s *Service) CalculateCallCost(ctx context.Context, req CallCostRequest) (CallCost, error) {
	if req.CountryCode == "" {
		return CallCost{}, ErrInvalidPricingReq
	}
	if req.DurationSeconds <= 0 {
		return CallCost{}, ErrInvalidPricingReq
	}

	at := req.At
	if at.IsZero() {
		at = s.clock().UTC()
	}

	rate, ok, err := s.repo.FindMinuteRate(ctx, req.CountryCode, at)
	if err != nil {
		return CallCost{}, err
	}
	if !ok {
		return CallCost{}, ErrRateNotFound
	}

	billableSec := billableSeconds(req.DurationSeconds, rate.MinimumBillableSeconds, rate.BillingIncrementSeconds)
	billableMin := billableMinutesFromSeconds(billableSec)

	return CallCost{
		CountryCode:        req.CountryCode,
		Currency:           rate.Currency,
		BillableSeconds:    billableSec,
		BillableMinutes:    billableMin,
		RatePerMinuteMinor: rate.RatePerMinuteMinor,
		TotalMinor:         rate.RatePerMinuteMinor * int64(billableMin),
	}, nil
}

// RateRepository abstracts rate persistence.
// Implementation can be Postgres, cached, etc.
type RateRepository interface {
	FindMinuteRate(ctx context.Context, countryCode string, at time.Time) (MinuteRate, bool, error)
}

func billableSeconds(actualSec int, minSec int, incrementSec int) int {
	if actualSec < 0 {
		return 0
	}
	if minSec <= 0 {
		minSec = 0
	}
	if incrementSec <= 0 {
		incrementSec = 60
	}

	sec := actualSec
	if sec < minSec {
		sec = minSec
	}

	// round up to nearest increment
	q := sec / incrementSec
	r := sec % incrementSec
	if r != 0 {
		q++
	}
	return q * incrementSec
}

func billableMinutesFromSeconds(sec int) int {
	if sec <= 0 {
		return 0
	}
	m := sec / 60
	if sec%60 != 0 {
		m++
	}
	return m
}
