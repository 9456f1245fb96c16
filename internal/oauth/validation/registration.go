package validation

import (
	"context"
	"net/url"

	"authgate/internal/oauth/models"
)

// RegistrationMetadataValidator validates a dynamic client registration
// payload: name present, every redirect URI absolute and fragment-free,
// grant types known. Redirect-based grants require at least one URI.
type RegistrationMetadataValidator struct{}

func NewRegistrationMetadataValidator() *RegistrationMetadataValidator {
	return &RegistrationMetadataValidator{}
}

func (v *RegistrationMetadataValidator) Validate(_ context.Context, vc *Context) *models.Error {
	req := vc.Registration
	if req.Name == "" {
		return models.NewError(models.ErrInvalidClientMetadata, "client_name is required")
	}
	if len(req.GrantTypes) == 0 {
		return models.NewError(models.ErrInvalidClientMetadata, "grant_types is required")
	}
	needsRedirect := false
	for _, g := range req.GrantTypes {
		if !g.IsValid() {
			return models.NewError(models.ErrInvalidClientMetadata, "unknown grant_type: "+string(g))
		}
		if g == models.GrantAuthorizationCode {
			needsRedirect = true
		}
		if g.RequiresConfidentialClient() && !req.Confidential {
			return models.NewError(models.ErrInvalidClientMetadata, string(g)+" requires a confidential client")
		}
	}
	if needsRedirect && len(req.RedirectURIs) == 0 {
		return models.NewError(models.ErrInvalidRedirectURI, "redirect_uris is required for redirect-based grants")
	}
	for _, raw := range append(append([]string{}, req.RedirectURIs...), req.PostLogoutURIs...) {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return models.NewError(models.ErrInvalidRedirectURI, "redirect URIs must be absolute")
		}
		if u.Fragment != "" {
			return models.NewError(models.ErrInvalidRedirectURI, "redirect URIs must not contain a fragment")
		}
	}
	return nil
}

// RequestURIProhibitedValidator rejects request_uri inside a pushed
// authorization request: PAR payloads must be self-contained.
type RequestURIProhibitedValidator struct{}

func NewRequestURIProhibitedValidator() *RequestURIProhibitedValidator {
	return &RequestURIProhibitedValidator{}
}

func (v *RequestURIProhibitedValidator) Validate(_ context.Context, vc *Context) *models.Error {
	if vc.Authorization.RequestURI != "" {
		return models.NewError(models.ErrInvalidRequest, "request_uri may not appear inside a pushed authorization request")
	}
	return nil
}
