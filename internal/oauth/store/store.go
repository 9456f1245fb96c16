// Package store declares the storage contracts the grant machinery depends
// on. Implementations live in subpackages, one per aggregate, each with an
// in-memory variant for tests/dev and a Redis variant for deployment.
//
// Error contract, shared by every implementation:
//   - sentinel.ErrNotFound (wrapped) when the entity does not exist or has
//     already been pruned; callers treat expiry and absence identically
//   - sentinel.ErrExpired / ErrAlreadyUsed / ErrInvalidState (wrapped) for
//     consume-time validation failures
//   - plain wrapped errors for infrastructure failures
//
// Single-use guarantees (authorization codes, PAR request URIs, device and
// CIBA consumption) are implemented inside the store primitives: memory
// stores mutate under one lock, Redis stores use GETDEL or WATCH
// transactions. Callers never add their own locking.
package store

import (
	"context"
	"time"

	"authgate/internal/oauth/models"
)

// GrantStore persists authorization codes bound to authorized grants.
type GrantStore interface {
	// Store saves the grant under a fresh opaque code with the given TTL.
	Store(ctx context.Context, grant models.AuthorizedGrant, ttl time.Duration) (code string, err error)
	// FetchAndRemove atomically retrieves and deletes the grant. Exactly one
	// of two racing callers wins; the loser sees sentinel.ErrNotFound.
	FetchAndRemove(ctx context.Context, code string) (*models.AuthorizedGrant, error)
}

// PARStore persists pushed authorization requests under single-use
// request URIs.
type PARStore interface {
	Store(ctx context.Context, req models.AuthorizationRequest, ttl time.Duration) (requestURI string, err error)
	// Consume atomically retrieves and deletes the stored request; a second
	// consume of the same URI fails with sentinel.ErrNotFound.
	Consume(ctx context.Context, requestURI string) (*models.AuthorizationRequest, error)
}

// DeviceStore persists pending device authorizations keyed by device code,
// with a secondary user-code index for the verification UI.
type DeviceStore interface {
	Create(ctx context.Context, rec *models.DeviceAuthorizationRecord, ttl time.Duration) error
	FindByUserCode(ctx context.Context, userCode string) (*models.DeviceAuthorizationRecord, error)
	// Update persists approval/denial state changes.
	Update(ctx context.Context, rec *models.DeviceAuthorizationRecord) error
	// Poll runs one token-endpoint poll atomically: it validates expiry, the
	// slow-down gate, and status, advances the poll gate, and on an
	// authorized record deletes it and returns it (single consumption).
	Poll(ctx context.Context, deviceCode string, now time.Time) (*models.DeviceAuthorizationRecord, error)
}

// BackChannelStore is the CIBA analogue of DeviceStore, keyed by auth_req_id.
type BackChannelStore interface {
	Create(ctx context.Context, rec *models.BackChannelRequestRecord, ttl time.Duration) error
	Find(ctx context.Context, authReqID string) (*models.BackChannelRequestRecord, error)
	Update(ctx context.Context, rec *models.BackChannelRequestRecord) error
	Poll(ctx context.Context, authReqID string, now time.Time) (*models.BackChannelRequestRecord, error)
}

// RefreshTokenStore persists refresh tokens with single-use consumption.
type RefreshTokenStore interface {
	Create(ctx context.Context, rec *models.RefreshTokenRecord) error
	// Consume validates and marks the token used in one step. The record is
	// returned even on ErrAlreadyUsed so callers can run replay detection.
	Consume(ctx context.Context, token string, now time.Time) (*models.RefreshTokenRecord, error)
	// MarkRotated links a consumed token to its replacement.
	MarkRotated(ctx context.Context, token, replacement string) error
	// RevokeBySubject removes every refresh token belonging to the subject.
	// Replay detection uses this to kill the whole token family.
	RevokeBySubject(ctx context.Context, subject string) (int, error)
}

// IssuedTokenStore tracks minted token IDs for introspection, revocation,
// and refresh reuse detection.
type IssuedTokenStore interface {
	Record(ctx context.Context, jti string, meta models.IssuedTokenMeta) error
	Find(ctx context.Context, jti string) (*models.IssuedTokenMeta, error)
	Revoke(ctx context.Context, jti string) error
	// RevokeBySubject revokes every live token for a subject, used when a
	// refresh-token replay proves the grant is compromised.
	RevokeBySubject(ctx context.Context, subject string) (int, error)
}
