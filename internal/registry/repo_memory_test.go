package registry

import (
	"context"
	"testing"
)

func TestMemoryRepo_FindByNumber(t *testing.T) {
	r := NewMemoryRepo()
	r.Put(OwnedNumber{ID: "n1", AccountID: "acct-1", PhoneNumber: "+15551234567", CountryCode: "US", Status: NumberStatusAssigned})
	r.Put(OwnedNumber{ID: "n2", AccountID: "acct-2", PhoneNumber: "+15559990000", CountryCode: "US", Status: NumberStatusReleased})

	n, ok, err := r.FindByNumber(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || n.AccountID != "acct-1" {
		t.Fatalf("expected acct-1, got %+v ok=%v", n, ok)
	}

	// Released numbers must not resolve.
	_, ok, err = r.FindByNumber(context.Background(), "+15559990000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("released number must not resolve")
	}

	_, ok, _ = r.FindByNumber(context.Background(), "+15550000000")
	if ok {
		t.Fatalf("unknown number must not resolve")
	}
}
