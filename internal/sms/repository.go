package sms

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("sms: message not found")

// Repository persists messages.
type Repository interface {
	Create(ctx context.Context, m Message) error
	FindByExternalID(ctx context.Context, externalMessageID string) (Message, bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, accountID, messageID string) error
}
