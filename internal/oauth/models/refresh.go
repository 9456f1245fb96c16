package models

import (
	"errors"
	"time"
)

// RefreshTokenRecord is the stored form of an issued refresh token. The
// embedded grant carries everything needed to mint new tokens; Used plus
// RotatedTo implement rotation with replay detection.
type RefreshTokenRecord struct {
	Token     string          `json:"token"`
	Grant     AuthorizedGrant `json:"grant"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Used      bool            `json:"used"`
	UsedAt    *time.Time      `json:"used_at,omitempty"`
	// RotatedTo names the replacement token issued when this one was
	// consumed under a rotation policy. A second presentation of a rotated
	// token is a replay.
	RotatedTo string `json:"rotated_to,omitempty"`
}

// Consume failures, exported so stores can translate them with errors.Is
// instead of matching messages.
var (
	ErrRefreshExpired     = errors.New("refresh token expired")
	ErrRefreshAlreadyUsed = errors.New("refresh token already used")
)

// ValidateForConsume checks the token can be redeemed right now.
func (r *RefreshTokenRecord) ValidateForConsume(now time.Time) error {
	if !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(now) {
		return ErrRefreshExpired
	}
	if r.Used {
		return ErrRefreshAlreadyUsed
	}
	return nil
}

// MarkUsed consumes the token. Only call after ValidateForConsume succeeds.
func (r *RefreshTokenRecord) MarkUsed(now time.Time) {
	r.Used = true
	r.UsedAt = &now
}
