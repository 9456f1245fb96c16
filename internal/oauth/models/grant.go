package models

import "time"

// AuthorizationContext is the granted-permission envelope bound to one
// client and session. It is assembled once authorization succeeds and is
// immutable afterwards; authorization codes and refresh tokens embed it so
// the token endpoint can re-verify PKCE and redirect_uri.
type AuthorizationContext struct {
	ClientID            string               `json:"client_id"`
	Scopes              []string             `json:"scopes"`
	Resources           []ResourceDefinition `json:"resources,omitempty"`
	RequestedClaims     string               `json:"requested_claims,omitempty"`
	RedirectURI         string               `json:"redirect_uri,omitempty"`
	Nonce               string               `json:"nonce,omitempty"`
	CodeChallenge       string               `json:"code_challenge,omitempty"`
	CodeChallengeMethod CodeChallengeMethod  `json:"code_challenge_method,omitempty"`
}

// IssuedToken records one token minted under a grant, for reuse detection
// and revocation bookkeeping.
type IssuedToken struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthorizedGrant pairs a session with a granted context. It is created when
// a grant is authorized (code issuance, refresh, device/CIBA approval),
// stored with a TTL, and consumed exactly once for single-use grants.
type AuthorizedGrant struct {
	Session      AuthSession          `json:"session"`
	Context      AuthorizationContext `json:"context"`
	IssuedTokens []IssuedToken        `json:"issued_tokens,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// RecordIssuedToken appends bookkeeping for a freshly minted token.
func (g *AuthorizedGrant) RecordIssuedToken(jti string, expiresAt time.Time) {
	g.IssuedTokens = append(g.IssuedTokens, IssuedToken{JTI: jti, ExpiresAt: expiresAt})
}

// ConsentDefinition partitions a request's scopes and resources into what the
// user already granted and what still needs approval. Recomputed on every
// authorization attempt; never persisted directly.
type ConsentDefinition struct {
	GrantedScopes    []string             `json:"granted_scopes"`
	PendingScopes    []string             `json:"pending_scopes"`
	GrantedResources []ResourceDefinition `json:"granted_resources,omitempty"`
	PendingResources []ResourceDefinition `json:"pending_resources,omitempty"`
}

// HasPending reports whether anything still requires user approval.
func (c ConsentDefinition) HasPending() bool {
	return len(c.PendingScopes) > 0 || len(c.PendingResources) > 0
}
