package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"virtualphone-platform/internal/notify"
	"virtualphone-platform/internal/registry"
	"virtualphone-platform/pkg/logger"
)

// Service attributes inbound messages to accounts and stores them.
type Service struct {
	messages Repository
	numbers  registry.Repository
	notifier notify.Notifier

	clock func() time.Time
}

func NewService(messages Repository, numbers registry.Repository, notifier notify.Notifier) *Service {
	return &Service{
		messages: messages,
		numbers:  numbers,
		notifier: notifier,
		clock:    time.Now,
	}
}

// InboundEvent is the provider's message webhook payload.
type InboundEvent struct {
	ExternalMessageID string
	From              string
	To                string
	Body              string
}

// ReceiveInbound stores an inbound message addressed to an owned number.
// Redeliveries of the same provider sid are no-ops; messages to unowned
// numbers are discarded since no account can be attributed.
func (s *Service) ReceiveInbound(ctx context.Context, ev InboundEvent) (Message, bool, error) {
	log := logger.From(ctx)

	if ev.ExternalMessageID != "" {
		if existing, found, err := s.messages.FindByExternalID(ctx, ev.ExternalMessageID); err != nil {
			return Message{}, false, fmt.Errorf("sms: idempotency lookup: %w", err)
		} else if found {
			log.Debug("sms: duplicate delivery ignored", "external_message_id", ev.ExternalMessageID)
			return existing, false, nil
		}
	}

	owned, ok, err := s.numbers.FindByNumber(ctx, ev.To)
	if err != nil {
		return Message{}, false, fmt.Errorf("sms: registry lookup: %w", err)
	}
	if !ok {
		log.Warn("sms: message to unowned number discarded", "to", ev.To)
		return Message{}, false, nil
	}

	m := Message{
		MessageID:         uuid.NewString(),
		ExternalMessageID: ev.ExternalMessageID,
		AccountID:         owned.AccountID,
		From:              ev.From,
		To:                ev.To,
		Body:              ev.Body,
		Direction:         DirectionInbound,
		CreatedAt:         s.clock().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return Message{}, false, fmt.Errorf("sms: store message: %w", err)
	}

	s.notifier.Publish(ctx, owned.AccountID, notify.Event{
		Type: notify.EventMessageReceived,
		Data: map[string]any{"message_id": m.MessageID, "from": m.From},
	})
	return m, true, nil
}

// RecordOutbound stores a message the account sent through the provider.
// The caller has already placed it; ExternalMessageID is the provider's
// sid for the outbound leg.
func (s *Service) RecordOutbound(ctx context.Context, accountID string, ev InboundEvent) (Message, error) {
	m := Message{
		MessageID:         uuid.NewString(),
		ExternalMessageID: ev.ExternalMessageID,
		AccountID:         accountID,
		From:              ev.From,
		To:                ev.To,
		Body:              ev.Body,
		Direction:         DirectionOutbound,
		Read:              true,
		CreatedAt:         s.clock().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return Message{}, fmt.Errorf("sms: store outbound message: %w", err)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, accountID string, limit int) ([]Message, error) {
	return s.messages.ListByAccount(ctx, accountID, limit)
}

func (s *Service) MarkRead(ctx context.Context, accountID, messageID string) error {
	return s.messages.MarkRead(ctx, accountID, messageID)
}
