package validation

import (
	"context"

	"authgate/internal/oauth/models"
)

// PostLogoutURIValidator checks the post_logout_redirect_uri, when present,
// against the client's registered post-logout URIs with the same exact-match
// rules as redirect URIs.
//
// Runs after ClientValidator in the end-session chain.
type PostLogoutURIValidator struct{}

func NewPostLogoutURIValidator() *PostLogoutURIValidator { return &PostLogoutURIValidator{} }

func (v *PostLogoutURIValidator) Validate(_ context.Context, vc *Context) *models.Error {
	uri := vc.EndSession.PostLogoutRedirectURI
	if uri == "" {
		return nil
	}
	if !MatchesAnyRegistered(vc.Client.PostLogoutURIs, uri) {
		return models.NewError(models.ErrInvalidRequest, "post_logout_redirect_uri is not registered")
	}
	return nil
}

// IDTokenVerifier verifies a raw ID token and returns its claims. The
// end-session chain uses it to check the id_token_hint signature.
type IDTokenVerifier interface {
	Validate(ctx context.Context, raw string) (map[string]any, error)
}

// IDTokenHintValidator requires the logout request to identify the session
// being ended when it wants a post-logout redirect. A present hint must be a
// token this server signed, and its audience must include the requesting
// client.
type IDTokenHintValidator struct {
	verifier IDTokenVerifier
}

func NewIDTokenHintValidator(verifier IDTokenVerifier) *IDTokenHintValidator {
	return &IDTokenHintValidator{verifier: verifier}
}

func (v *IDTokenHintValidator) Validate(ctx context.Context, vc *Context) *models.Error {
	hint := vc.EndSession.IDTokenHint
	if hint == "" {
		if vc.EndSession.PostLogoutRedirectURI != "" {
			return models.NewError(models.ErrInvalidRequest, "id_token_hint is required with post_logout_redirect_uri")
		}
		return nil
	}
	claims, err := v.verifier.Validate(ctx, hint)
	if err != nil {
		return models.NewError(models.ErrInvalidRequest, "id_token_hint verification failed")
	}
	if !audienceContains(claims["aud"], vc.EndSession.ClientID) {
		return models.NewError(models.ErrInvalidRequest, "id_token_hint was not issued to this client")
	}
	return nil
}

// audienceContains matches the aud claim in either of its JWT shapes, a
// single string or an array of strings.
func audienceContains(aud any, clientID string) bool {
	switch v := aud.(type) {
	case string:
		return v == clientID
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == clientID {
				return true
			}
		}
	}
	return false
}
