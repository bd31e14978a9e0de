package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// AccountID must be present for all authenticated activity; every
// user-facing resource (sessions, voicemails, ledger) is account-scoped.
type Claims struct {
	jwt.RegisteredClaims

	AccountID string    `json:"account_id"`
	TokenType TokenType `json:"token_type"`
}
