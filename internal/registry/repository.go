package registry

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("registry: number not found")

// Repository abstracts number-ownership persistence.
//
// Only numbers with status "assigned" resolve to an owner; available and
// released numbers must not attribute webhook traffic to an account.
type Repository interface {
	// FindByNumber resolves an assigned number to its owner.
	FindByNumber(ctx context.Context, phoneNumber string) (OwnedNumber, bool, error)
}
