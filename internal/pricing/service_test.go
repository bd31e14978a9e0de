package pricing

import (
	"context"
	"testing"
	"time"
)

func TestBillableSeconds(t *testing.T) {
	// 60s increment, 0 min
	if got := billableSeconds(1, 0, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := billableSeconds(60, 0, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := billableSeconds(137, 0, 60); got != 180 {
		t.Fatalf("expected 180, got %d", got)
	}

	// min billable seconds
	if got := billableSeconds(5, 30, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
}

func TestBillableMinutesFromSeconds(t *testing.T) {
	if got := billableMinutesFromSeconds(1); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := billableMinutesFromSeconds(61); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestCalculateCallCost(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	repo := &MemoryRepo{Rates: []MinuteRate{{
		ID:                      "r1",
		CountryCode:             "US",
		Currency:                "USD",
		RatePerMinuteMinor:      150,
		BillingIncrementSeconds: 60,
		Status:                  RateStatusActive,
		EffectiveFrom:           now.Add(-time.Hour),
	}}}
	svc := NewService(repo)

	cost, err := svc.CalculateCallCost(context.Background(), CallCostRequest{
		CountryCode:     "US",
		DurationSeconds: 137,
		At:              now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost.BillableMinutes != 3 {
		t.Fatalf("expected 3 billable minutes for 137s, got %d", cost.BillableMinutes)
	}
	if cost.TotalMinor != 450 {
		t.Fatalf("expected 450, got %d", cost.TotalMinor)
	}

	_, err = svc.CalculateCallCost(context.Background(), CallCostRequest{
		CountryCode:     "ZZ",
		DurationSeconds: 60,
		At:              now,
	})
	if err != ErrRateNotFound {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
}
