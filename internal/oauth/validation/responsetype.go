package validation

import (
	"context"

	"authgate/internal/oauth/models"
)

// ResponseTypeValidator parses response_type, checks the combination against
// the client's allowed grants, and records the parsed value on the context.
//
// Runs after RedirectURIValidator so failures redirect back to the client.
type ResponseTypeValidator struct{}

func NewResponseTypeValidator() *ResponseTypeValidator { return &ResponseTypeValidator{} }

func (v *ResponseTypeValidator) Validate(_ context.Context, vc *Context) *models.Error {
	rt, ok := models.ParseResponseType(vc.Authorization.ResponseTypeRaw)
	if !ok {
		return models.NewError(models.ErrUnsupportedResponseType, "response_type is missing or malformed")
	}
	// A code response requires the authorization_code grant; implicit
	// artifacts are tied to the same registration since this server has no
	// separate implicit grant toggle.
	if rt.Code && !vc.Client.CanUseGrant(models.GrantAuthorizationCode) {
		return models.NewError(models.ErrUnauthorizedClient, "client may not use the authorization_code grant")
	}
	if rt.IsImplicit() && !vc.Client.CanUseGrant(models.GrantAuthorizationCode) {
		return models.NewError(models.ErrUnauthorizedClient, "client may not use browser-based flows")
	}
	vc.ResponseType = rt
	return nil
}

// ResponseModeValidator resolves the response mode, defaulting per flow and
// rejecting illegal combinations: token-bearing responses must not travel in
// a query string.
//
// Runs after ResponseTypeValidator.
type ResponseModeValidator struct{}

func NewResponseModeValidator() *ResponseModeValidator { return &ResponseModeValidator{} }

func (v *ResponseModeValidator) Validate(_ context.Context, vc *Context) *models.Error {
	raw := vc.Authorization.ResponseModeRaw
	if raw == "" {
		vc.ResponseMode = models.DefaultResponseMode(vc.ResponseType)
		return nil
	}
	mode := models.ResponseMode(raw)
	if !mode.IsValid() {
		return models.NewError(models.ErrInvalidRequest, "unsupported response_mode")
	}
	if mode == models.ResponseModeQuery && (vc.ResponseType.IsImplicit() || vc.ResponseType.IsHybrid()) {
		return models.NewError(models.ErrInvalidRequest, "response_mode=query may not carry tokens")
	}
	vc.ResponseMode = mode
	return nil
}

// NonceValidator enforces the OIDC nonce requirement: any flow delivering an
// id_token from the authorization endpoint needs a nonce to bind it to the
// client session.
type NonceValidator struct{}

func NewNonceValidator() *NonceValidator { return &NonceValidator{} }

func (v *NonceValidator) Validate(_ context.Context, vc *Context) *models.Error {
	if vc.ResponseType.IDToken && !vc.ResponseType.Code && vc.Authorization.Nonce == "" {
		return models.NewError(models.ErrInvalidRequest, "nonce is required for implicit and hybrid id_token responses")
	}
	return nil
}

// PromptValidator rejects unknown prompt values early so the processor's
// state machine only ever sees legal inputs.
type PromptValidator struct{}

func NewPromptValidator() *PromptValidator { return &PromptValidator{} }

func (v *PromptValidator) Validate(_ context.Context, vc *Context) *models.Error {
	if !vc.Authorization.Prompt.IsValid() {
		return models.NewError(models.ErrInvalidRequest, "unsupported prompt value")
	}
	return nil
}
