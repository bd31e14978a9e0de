package plan

import "time"

// Plan is a prepaid unlimited-calling plan for one destination country,
// subject to a fair-use minute allowance. While a call's billable minutes
// fit inside the allowance the wallet is not debited; the usage counter
// moves instead.
type Plan struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	CountryCode string `json:"country_code" db:"country_code"`

	MinutesLimit int `json:"minutes_limit" db:"minutes_limit"`
	MinutesUsed  int `json:"minutes_used" db:"minutes_used"`

	Status PlanStatus `json:"status" db:"status"`

	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PlanStatus string

const (
	PlanStatusActive  PlanStatus = "active"
	PlanStatusExpired PlanStatus = "expired"
)
