package sms

import (
	"context"
	"testing"

	"virtualphone-platform/internal/notify"
	"virtualphone-platform/internal/registry"
)

func newTestService(rec *notify.Recorder) *Service {
	numbers := registry.NewMemoryRepo()
	numbers.Put(registry.OwnedNumber{
		ID: "n1", AccountID: "acct-1", PhoneNumber: "+15551234567",
		CountryCode: "US", Status: registry.NumberStatusAssigned,
	})
	var notifier notify.Notifier = notify.Noop{}
	if rec != nil {
		notifier = rec
	}
	return NewService(NewMemoryRepo(), numbers, notifier)
}

func TestReceiveInbound_AttributesAndNotifies(t *testing.T) {
	rec := &notify.Recorder{}
	svc := newTestService(rec)
	ctx := context.Background()

	m, created, err := svc.ReceiveInbound(ctx, InboundEvent{
		ExternalMessageID: "SM1",
		From:              "+447700900123",
		To:                "+15551234567",
		Body:              "hello",
	})
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if !created {
		t.Fatalf("expected a new message")
	}
	if m.AccountID != "acct-1" || m.Direction != DirectionInbound {
		t.Fatalf("wrong attribution: %+v", m)
	}

	events := rec.Events()
	if len(events) != 1 || events[0].Event.Type != notify.EventMessageReceived {
		t.Fatalf("expected one message_received event, got %+v", events)
	}

	list, _ := svc.List(ctx, "acct-1", 10)
	if len(list) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(list))
	}
}

func TestReceiveInbound_DuplicateSidIsNoop(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	ev := InboundEvent{ExternalMessageID: "SM1", From: "+447700900123", To: "+15551234567", Body: "hello"}

	if _, _, err := svc.ReceiveInbound(ctx, ev); err != nil {
		t.Fatalf("first receive failed: %v", err)
	}
	_, created, err := svc.ReceiveInbound(ctx, ev)
	if err != nil {
		t.Fatalf("second receive failed: %v", err)
	}
	if created {
		t.Fatalf("duplicate sid must not create a second message")
	}

	list, _ := svc.List(ctx, "acct-1", 10)
	if len(list) != 1 {
		t.Fatalf("expected 1 message after redelivery, got %d", len(list))
	}
}

func TestReceiveInbound_UnownedNumberDiscarded(t *testing.T) {
	svc := newTestService(nil)
	_, created, err := svc.ReceiveInbound(context.Background(), InboundEvent{
		ExternalMessageID: "SM2", From: "+447700900123", To: "+19998887777", Body: "hi",
	})
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if created {
		t.Fatalf("unowned destination must be discarded")
	}
}
