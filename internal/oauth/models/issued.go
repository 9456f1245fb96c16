package models

import "time"

// IssuedTokenMeta is the bookkeeping record behind one minted token JTI.
// Introspection reads it; revocation flips Revoked.
type IssuedTokenMeta struct {
	Subject   string    `json:"subject"`
	ClientID  string    `json:"client_id"`
	Scopes    []string  `json:"scopes"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
	Revoked   bool      `json:"revoked"`
}

// Active reports whether the token should introspect as live.
func (m IssuedTokenMeta) Active(now time.Time) bool {
	return !m.Revoked && now.Before(m.ExpiresAt)
}
