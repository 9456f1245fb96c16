package validation

import (
	"context"
	"net/url"

	"authgate/internal/oauth/models"
)

// ExactMatchURIValidator matches a candidate URI against one registered URI.
// Scheme, host, port, and path must match exactly; the query must also match
// unless ignoreQueryAndFragment is set. Fragments are ignored either way, per
// OAuth 2.0 convention.
type ExactMatchURIValidator struct {
	registered             *url.URL
	ignoreQueryAndFragment bool
}

func NewExactMatchURIValidator(registered string) (*ExactMatchURIValidator, error) {
	u, err := url.Parse(registered)
	if err != nil {
		return nil, err
	}
	return &ExactMatchURIValidator{registered: u}, nil
}

// NewLooseMatchURIValidator ignores query and fragment when comparing.
func NewLooseMatchURIValidator(registered string) (*ExactMatchURIValidator, error) {
	v, err := NewExactMatchURIValidator(registered)
	if err != nil {
		return nil, err
	}
	v.ignoreQueryAndFragment = true
	return v, nil
}

func (v *ExactMatchURIValidator) IsValid(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme != v.registered.Scheme || u.Host != v.registered.Host || u.Path != v.registered.Path {
		return false
	}
	if v.ignoreQueryAndFragment {
		return true
	}
	return u.RawQuery == v.registered.RawQuery
}

// RedirectURIValidator checks the requested redirect_uri against the client's
// registered URIs. Registered URIs form an OR: any exact match passes. A
// client with no registered URIs always fails. On success the context is
// marked redirect-safe so later errors travel back to the client.
//
// Must run after ClientValidator.
type RedirectURIValidator struct{}

func NewRedirectURIValidator() *RedirectURIValidator { return &RedirectURIValidator{} }

func (v *RedirectURIValidator) Validate(_ context.Context, vc *Context) *models.Error {
	req := vc.Authorization
	if req.RedirectURI == "" {
		return models.NewError(models.ErrInvalidRequest, "redirect_uri is required")
	}
	if !MatchesAnyRegistered(vc.Client.RedirectURIs, req.RedirectURI) {
		return models.NewError(models.ErrInvalidRequest, "redirect_uri is not registered for this client")
	}
	vc.MarkRedirectSafe()
	return nil
}

// MatchesAnyRegistered applies exact matching across every registered URI.
func MatchesAnyRegistered(registered []string, candidate string) bool {
	for _, r := range registered {
		m, err := NewExactMatchURIValidator(r)
		if err != nil {
			continue
		}
		if m.IsValid(candidate) {
			return true
		}
	}
	return false
}
