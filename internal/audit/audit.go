// Package audit emits security-relevant events from the authorization and
// token flows. Events are fire-and-forget: a publish failure is logged by the
// publisher, never surfaced to the protocol flow.
package audit

import (
	"context"
	"time"
)

// EventType enumerates the events the engine emits.
type EventType string

const (
	EventAuthorizationGranted EventType = "authorization.granted"
	EventAuthorizationDenied  EventType = "authorization.denied"
	EventTokenIssued          EventType = "token.issued"
	EventTokenRevoked         EventType = "token.revoked"
	EventRefreshReuse         EventType = "refresh.reuse_detected"
	EventDeviceApproved       EventType = "device.approved"
	EventDeviceDenied         EventType = "device.denied"
	EventClientRegistered     EventType = "client.registered"
	EventSessionTerminated    EventType = "session.terminated"
)

// Event is one audit record. Subject may be empty for client-only flows.
type Event struct {
	Type      EventType `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events to the audit sink.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events. Used when auditing is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
