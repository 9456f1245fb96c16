package validation

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"authgate/internal/oauth/models"
)

// GrantTypeValidator checks the requested grant_type is well formed and
// permitted for the client.
//
// Runs after ClientValidator.
type GrantTypeValidator struct{}

func NewGrantTypeValidator() *GrantTypeValidator { return &GrantTypeValidator{} }

func (v *GrantTypeValidator) Validate(_ context.Context, vc *Context) *models.Error {
	gt := vc.Token.GrantType
	if !gt.IsValid() {
		return models.NewError(models.ErrUnsupportedGrantType, "unsupported grant_type")
	}
	if !vc.Client.CanUseGrant(gt) {
		return models.NewError(models.ErrUnauthorizedClient, "client may not use this grant_type")
	}
	return nil
}

// ClientSecretValidator authenticates the client at the token endpoint.
// Confidential clients must present a secret matching the stored hash;
// public clients must not present one at all.
//
// Runs after ClientValidator.
type ClientSecretValidator struct{}

func NewClientSecretValidator() *ClientSecretValidator { return &ClientSecretValidator{} }

func (v *ClientSecretValidator) Validate(_ context.Context, vc *Context) *models.Error {
	secret := vc.Token.ClientSecret
	if !vc.Client.IsConfidential() {
		if secret != "" {
			return models.NewError(models.ErrInvalidClient, "public clients must not send client_secret")
		}
		return nil
	}
	if secret == "" {
		return models.NewError(models.ErrInvalidClient, "client_secret is required")
	}
	if bcrypt.CompareHashAndPassword([]byte(vc.Client.ClientSecretHash), []byte(secret)) != nil {
		return models.NewError(models.ErrInvalidClient, "client authentication failed")
	}
	return nil
}
