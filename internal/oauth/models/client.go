package models

import (
	"time"

	dErrors "authgate/pkg/domain-errors"
)

// ClientStatus tracks whether a registration may be used.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// ClientInfo is the aggregate root for an OAuth 2.0 client registration.
//
// Invariants:
//   - ClientID is non-empty
//   - RedirectURIs is non-empty for any client allowed a redirect-based grant
//   - AllowedGrants and AllowedScopes are non-empty
//   - client_credentials requires IsConfidential() == true
//   - PKCE is mandatory for public clients; PKCERequired may only be false
//     for confidential clients
type ClientInfo struct {
	ClientID         string        `json:"client_id"`
	Name             string        `json:"name"`
	ClientSecretHash string        `json:"-"` // bcrypt hash, never serialized
	RedirectURIs     []string      `json:"redirect_uris"`
	PostLogoutURIs   []string      `json:"post_logout_redirect_uris,omitempty"`
	AllowedGrants    []GrantType   `json:"allowed_grants"`
	AllowedScopes    []string      `json:"allowed_scopes"`
	AllowedResources []string      `json:"allowed_resources,omitempty"`
	PKCERequired     bool          `json:"pkce_required"`
	AllowPlainPKCE   bool          `json:"allow_plain_pkce"`
	CodeLifetime     time.Duration `json:"code_lifetime"`
	TokenLifetime    time.Duration `json:"token_lifetime"`
	RefreshLifetime  time.Duration `json:"refresh_lifetime"`
	RotateRefresh    bool          `json:"rotate_refresh_tokens"`
	Status           ClientStatus  `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

const (
	defaultCodeLifetime    = 2 * time.Minute
	defaultTokenLifetime   = time.Hour
	defaultRefreshLifetime = 30 * 24 * time.Hour
)

func NewClientInfo(
	clientID string,
	name string,
	secretHash string,
	redirectURIs []string,
	allowedGrants []GrantType,
	allowedScopes []string,
	now time.Time,
) (*ClientInfo, error) {
	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client_id cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client name cannot be empty")
	}
	if len(allowedGrants) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "allowed_grants cannot be empty")
	}
	for _, g := range allowedGrants {
		if !g.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid allowed_grant")
		}
		if g == GrantAuthorizationCode && len(redirectURIs) == 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "redirect_uris cannot be empty for redirect-based grants")
		}
	}
	if len(allowedScopes) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "allowed_scopes cannot be empty")
	}
	c := &ClientInfo{
		ClientID:         clientID,
		Name:             name,
		ClientSecretHash: secretHash,
		RedirectURIs:     redirectURIs,
		AllowedGrants:    allowedGrants,
		AllowedScopes:    allowedScopes,
		PKCERequired:     secretHash == "",
		CodeLifetime:     defaultCodeLifetime,
		TokenLifetime:    defaultTokenLifetime,
		RefreshLifetime:  defaultRefreshLifetime,
		Status:           ClientStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if g := GrantClientCredentials; containsGrant(allowedGrants, g) && !c.IsConfidential() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client_credentials requires a confidential client")
	}
	return c, nil
}

func containsGrant(grants []GrantType, g GrantType) bool {
	for _, have := range grants {
		if have == g {
			return true
		}
	}
	return false
}

func (c *ClientInfo) IsActive() bool { return c.Status == ClientStatusActive }

// Confidential clients are server-side apps with secure secret storage.
// Public clients are SPAs/mobile apps that cannot securely hold secrets.
func (c *ClientInfo) IsConfidential() bool { return c.ClientSecretHash != "" }

// CanUseGrant checks if the client is allowed the given grant type. Public
// clients never get grants that require secret storage.
func (c *ClientInfo) CanUseGrant(grant GrantType) bool {
	if grant.RequiresConfidentialClient() && !c.IsConfidential() {
		return false
	}
	return containsGrant(c.AllowedGrants, grant)
}

// RequiresPKCE reports whether an authorization-code request from this client
// must carry a code challenge. PKCE may be waived only for confidential
// clients that explicitly opted out at registration.
func (c *ClientInfo) RequiresPKCE() bool {
	if !c.IsConfidential() {
		return true
	}
	return c.PKCERequired
}

// HasScope reports whether the scope is registered for this client.
func (c *ClientInfo) HasScope(scope string) bool {
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasResource reports whether the resource indicator was pre-registered.
func (c *ClientInfo) HasResource(uri string) bool {
	for _, r := range c.AllowedResources {
		if r == uri {
			return true
		}
	}
	return false
}
