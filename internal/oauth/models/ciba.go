package models

import (
	"errors"
	"time"
)

// CIBAStatus is the lifecycle of a back-channel authentication request.
// Pending -> Authenticated or Denied; terminal once consumed or expired.
type CIBAStatus string

const (
	CIBAStatusPending       CIBAStatus = "pending"
	CIBAStatusAuthenticated CIBAStatus = "authenticated"
	CIBAStatusDenied        CIBAStatus = "denied"
)

// BackChannelRequestRecord is the pending-approval record behind a CIBA
// request, keyed by the opaque auth_req_id the client polls with.
//
// Invariants mirror DeviceAuthorizationRecord: status transitions leave
// pending exactly once, Grant is attached on authentication, NextPollAt
// gates polling.
type BackChannelRequestRecord struct {
	AuthReqID      string           `json:"auth_req_id"`
	ClientID       string           `json:"client_id"`
	Subject        string           `json:"subject"`
	Scopes         []string         `json:"scopes"`
	BindingMessage string           `json:"binding_message,omitempty"`
	Status         CIBAStatus       `json:"status"`
	Grant          *AuthorizedGrant `json:"grant,omitempty"`
	Interval       time.Duration    `json:"interval"`
	NextPollAt     time.Time        `json:"next_poll_at"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Authenticate attaches the grant produced by the authentication device.
func (r *BackChannelRequestRecord) Authenticate(grant AuthorizedGrant) error {
	if r.Status != CIBAStatusPending {
		return errors.New("back-channel request is not pending")
	}
	r.Status = CIBAStatusAuthenticated
	r.Grant = &grant
	return nil
}

// Deny records the user's refusal.
func (r *BackChannelRequestRecord) Deny() error {
	if r.Status != CIBAStatusPending {
		return errors.New("back-channel request is not pending")
	}
	r.Status = CIBAStatusDenied
	return nil
}

// ValidateForPoll checks a token-endpoint poll; same gate semantics as the
// device flow.
func (r *BackChannelRequestRecord) ValidateForPoll(now time.Time) error {
	if now.After(r.ExpiresAt) {
		return errRecordExpired
	}
	if now.Before(r.NextPollAt) {
		return errRecordSlowDown
	}
	switch r.Status {
	case CIBAStatusPending:
		return errRecordPending
	case CIBAStatusDenied:
		return errRecordDenied
	case CIBAStatusAuthenticated:
		return nil
	}
	return errors.New("unknown back-channel request status")
}

// AdvancePollGate pushes NextPollAt forward by the polling interval.
func (r *BackChannelRequestRecord) AdvancePollGate(now time.Time) {
	r.NextPollAt = now.Add(r.Interval)
}
