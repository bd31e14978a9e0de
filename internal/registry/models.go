package registry

import "time"

// OwnedNumber maps a virtual phone number to its owning account.
//
// The registry is consulted by webhook correlation: whether a number is
// owned decides the call direction and attributes the billable account.
type OwnedNumber struct {
	ID          string `json:"id" db:"id"`
	AccountID   string `json:"account_id" db:"account_id"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// CountryCode selects the pricing bucket for outbound calls from
	// this number (e.g., "US", "IN").
	CountryCode string `json:"country_code" db:"country_code"`

	Status NumberStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NumberStatus string

const (
	NumberStatusAvailable NumberStatus = "available"
	NumberStatusAssigned  NumberStatus = "assigned"
	NumberStatusReleased  NumberStatus = "released"
)
