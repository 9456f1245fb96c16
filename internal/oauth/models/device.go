package models

import (
	"errors"
	"time"
)

// DeviceStatus is the lifecycle of a pending device authorization.
// Pending -> Authorized or Denied; terminal once consumed by a token
// exchange or expired.
type DeviceStatus string

const (
	DeviceStatusPending    DeviceStatus = "pending"
	DeviceStatusAuthorized DeviceStatus = "authorized"
	DeviceStatusDenied     DeviceStatus = "denied"
)

var (
	errRecordExpired  = errors.New("expired")
	errRecordPending  = errors.New("authorization pending")
	errRecordDenied   = errors.New("denied")
	errRecordSlowDown = errors.New("polled too early")
)

// DeviceAuthorizationRecord is the long-lived pending-approval record behind
// the RFC 8628 flow, keyed by the opaque device code. The short UserCode is
// what the end user types on the secondary device.
//
// Invariants:
//   - Status transitions: pending -> authorized, pending -> denied; nothing leaves
//     a terminal status
//   - Grant is non-nil iff Status == authorized
//   - NextPollAt gates token-endpoint polling (slow_down before it passes)
type DeviceAuthorizationRecord struct {
	DeviceCode string           `json:"device_code"`
	UserCode   string           `json:"user_code"`
	ClientID   string           `json:"client_id"`
	Scopes     []string         `json:"scopes"`
	Status     DeviceStatus     `json:"status"`
	Grant      *AuthorizedGrant `json:"grant,omitempty"`
	Interval   time.Duration    `json:"interval"`
	NextPollAt time.Time        `json:"next_poll_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Approve attaches the grant and moves the record to authorized.
func (r *DeviceAuthorizationRecord) Approve(grant AuthorizedGrant) error {
	if r.Status != DeviceStatusPending {
		return errors.New("device authorization is not pending")
	}
	r.Status = DeviceStatusAuthorized
	r.Grant = &grant
	return nil
}

// Deny moves the record to denied.
func (r *DeviceAuthorizationRecord) Deny() error {
	if r.Status != DeviceStatusPending {
		return errors.New("device authorization is not pending")
	}
	r.Status = DeviceStatusDenied
	return nil
}

// ValidateForPoll checks a token-endpoint poll against expiry, the slow-down
// gate, and the status machine. On success the record is consumable.
func (r *DeviceAuthorizationRecord) ValidateForPoll(now time.Time) error {
	if now.After(r.ExpiresAt) {
		return errRecordExpired
	}
	if now.Before(r.NextPollAt) {
		return errRecordSlowDown
	}
	switch r.Status {
	case DeviceStatusPending:
		return errRecordPending
	case DeviceStatusDenied:
		return errRecordDenied
	case DeviceStatusAuthorized:
		return nil
	}
	return errors.New("unknown device authorization status")
}

// AdvancePollGate pushes NextPollAt forward by the polling interval. Called
// on every poll so a well-behaved client never trips slow_down.
func (r *DeviceAuthorizationRecord) AdvancePollGate(now time.Time) {
	r.NextPollAt = now.Add(r.Interval)
}

// PollErrorCode maps a ValidateForPoll failure onto the wire error RFC 8628
// prescribes.
func PollErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, errRecordExpired):
		return ErrExpiredToken
	case errors.Is(err, errRecordSlowDown):
		return ErrSlowDown
	case errors.Is(err, errRecordPending):
		return ErrAuthorizationPending
	case errors.Is(err, errRecordDenied):
		return ErrAccessDenied
	default:
		return ErrInvalidGrant
	}
}
