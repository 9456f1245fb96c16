package models

import "time"

// AuthSession represents one authenticated end-user login. A session outlives
// individual authorization requests: several clients may ride the same login,
// each recorded in AffectedClientIDs so logout can notify all of them.
//
// Invariants:
//   - Subject and SessionID are non-empty
//   - AffectedClientIDs only ever grows; AppendAffectedClient is idempotent
type AuthSession struct {
	SessionID          string     `json:"session_id"`
	Subject            string     `json:"subject"`
	AuthenticationTime time.Time  `json:"auth_time"`
	IdentityProvider   string     `json:"idp"`
	ACR                string     `json:"acr,omitempty"`
	AMR                []string   `json:"amr,omitempty"`
	AffectedClientIDs  []string   `json:"affected_client_ids"`
	DeviceDisplayName  string     `json:"device_display_name,omitempty"`
	ExpiresAt          time.Time  `json:"expires_at"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
}

// IsAlive reports whether the session can still back an authorization.
func (s *AuthSession) IsAlive(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// SatisfiesMaxAge checks the OIDC max_age constraint: the login must be more
// recent than now minus maxAge seconds. A nil maxAge always passes.
func (s *AuthSession) SatisfiesMaxAge(maxAge *int64, now time.Time) bool {
	if maxAge == nil {
		return true
	}
	return s.AuthenticationTime.After(now.Add(-time.Duration(*maxAge) * time.Second))
}

// SatisfiesACR checks the session's ACR against the requested set. An empty
// requested set places no constraint.
func (s *AuthSession) SatisfiesACR(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	for _, acr := range requested {
		if s.ACR == acr {
			return true
		}
	}
	return false
}

// HasAffectedClient reports whether the client already used this session.
func (s *AuthSession) HasAffectedClient(clientID string) bool {
	for _, id := range s.AffectedClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// AppendAffectedClient records the client on the session. Idempotent: a
// client already present is not duplicated. Returns true when the session
// changed and needs persisting.
func (s *AuthSession) AppendAffectedClient(clientID string) bool {
	if s.HasAffectedClient(clientID) {
		return false
	}
	s.AffectedClientIDs = append(s.AffectedClientIDs, clientID)
	return true
}
