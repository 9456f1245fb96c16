package validation

import (
	"time"

	"authgate/internal/oauth/models"
)

// Context is the per-request mutable state threaded through a validator
// chain. Exactly one request variant is set, matching the chain being run.
//
// Resolved fields fill in monotonically: once a validator sets one (Client,
// ResponseType, Resources, ...) later validators treat it as authoritative
// and nothing ever clears it.
type Context struct {
	Authorization *models.AuthorizationRequest
	Token         *models.TokenRequest
	EndSession    *models.EndSessionRequest
	BackChannel   *models.BackChannelAuthenticationRequest
	Registration  *models.ClientRegistrationRequest

	// Client is resolved by the client validator; nil until then.
	Client *models.ClientInfo
	// ResponseType / ResponseMode are resolved for authorization requests.
	ResponseType models.ResponseType
	ResponseMode models.ResponseMode
	// Scopes are globally registered scope definitions matched by the
	// request; Resources are requested resource definitions with their
	// scopes already filtered to the request.
	Scopes    []models.ScopeDefinition
	Resources []models.ResourceDefinition

	// redirectSafe flips once the redirect URI has been validated against
	// the registration; from then on errors travel back on the redirect
	// channel instead of a direct response.
	redirectSafe bool
	// directOnly pins errors to the direct channel regardless of redirect
	// validation. Set for back-channel uses of the authorization chain (PAR).
	directOnly bool

	Now time.Time
}

// NewAuthorizationContext builds the context for the authorization chain.
func NewAuthorizationContext(req models.AuthorizationRequest, now time.Time) *Context {
	return &Context{Authorization: &req, Now: now}
}

// NewTokenContext builds the context for the token chain.
func NewTokenContext(req models.TokenRequest, now time.Time) *Context {
	return &Context{Token: &req, Now: now}
}

// NewEndSessionContext builds the context for the end-session chain.
func NewEndSessionContext(req models.EndSessionRequest, now time.Time) *Context {
	return &Context{EndSession: &req, Now: now}
}

// NewBackChannelContext builds the context for the CIBA chain.
func NewBackChannelContext(req models.BackChannelAuthenticationRequest, now time.Time) *Context {
	return &Context{BackChannel: &req, Now: now}
}

// NewRegistrationContext builds the context for dynamic client registration.
func NewRegistrationContext(req models.ClientRegistrationRequest, now time.Time) *Context {
	return &Context{Registration: &req, Now: now}
}

// MarkRedirectSafe records that the redirect URI passed registration checks.
func (c *Context) MarkRedirectSafe() { c.redirectSafe = true }

// DisableRedirectErrors pins error routing to the direct channel. PAR runs
// the authorization chain over a back-channel POST, so its errors are JSON
// bodies even after the redirect URI checks out.
func (c *Context) DisableRedirectErrors() { c.directOnly = true }

// Route attaches response routing to a validator error. Before the redirect
// URI is proven registered the error stays direct; afterwards it is bound to
// the redirect channel with the request state preserved.
func (c *Context) Route(err *models.Error) *models.Error {
	if err == nil {
		return nil
	}
	if c.directOnly || !c.redirectSafe || c.Authorization == nil {
		return err
	}
	mode := c.ResponseMode
	if mode == "" || mode == models.ResponseModeDirect {
		rt, _ := models.ParseResponseType(c.Authorization.ResponseTypeRaw)
		mode = models.DefaultResponseMode(rt)
	}
	return err.WithRedirect(mode, c.Authorization.RedirectURI, c.Authorization.State)
}
