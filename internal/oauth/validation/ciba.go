package validation

import (
	"context"

	"authgate/internal/oauth/models"
)

// CIBAGrantValidator checks the client's registration covers the CIBA grant.
//
// Runs after ClientValidator in the back-channel chain.
type CIBAGrantValidator struct{}

func NewCIBAGrantValidator() *CIBAGrantValidator { return &CIBAGrantValidator{} }

func (v *CIBAGrantValidator) Validate(_ context.Context, vc *Context) *models.Error {
	if !vc.Client.CanUseGrant(models.GrantCIBA) {
		return models.NewError(models.ErrUnauthorizedClient, "client may not use back-channel authentication")
	}
	return nil
}

// LoginHintValidator enforces that a back-channel request identifies the
// end user through exactly one hint mechanism.
type LoginHintValidator struct{}

func NewLoginHintValidator() *LoginHintValidator { return &LoginHintValidator{} }

func (v *LoginHintValidator) Validate(_ context.Context, vc *Context) *models.Error {
	req := vc.BackChannel
	hints := 0
	if req.LoginHint != "" {
		hints++
	}
	if req.LoginHintToken != "" {
		hints++
	}
	if req.IDTokenHint != "" {
		hints++
	}
	if hints != 1 {
		return models.NewError(models.ErrInvalidRequest, "exactly one of login_hint, login_hint_token, id_token_hint is required")
	}
	return nil
}
