package validation

import (
	"context"
	"net/url"

	"authgate/internal/oauth/models"
)

// ScopeRegistry resolves globally registered scopes. Nil means unknown.
type ScopeRegistry interface {
	FindScope(ctx context.Context, name string) (*models.ScopeDefinition, error)
}

// ResourceRegistry resolves registered resource indicators. Nil means unknown.
type ResourceRegistry interface {
	FindResource(ctx context.Context, uri string) (*models.ResourceDefinition, error)
}

// ResourceValidator validates RFC 8707 resource indicators: every requested
// resource must be an absolute URI without a fragment and must be registered.
// The first bad resource fails the request; no partial definitions are ever
// produced. Valid resources land on the context with their scope sets
// filtered to the request (an unmatched resource keeps an empty, not
// missing, scope set).
//
// Runs after ClientValidator, before ScopeValidator.
type ResourceValidator struct {
	resources ResourceRegistry
}

func NewResourceValidator(resources ResourceRegistry) *ResourceValidator {
	return &ResourceValidator{resources: resources}
}

func (v *ResourceValidator) Validate(ctx context.Context, vc *Context) *models.Error {
	requested, scopes := vc.requestedResources()
	if len(requested) == 0 {
		return nil
	}
	resolved := make([]models.ResourceDefinition, 0, len(requested))
	for _, raw := range requested {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return models.NewError(models.ErrInvalidTarget, "resource must be an absolute URI")
		}
		if u.Fragment != "" || u.RawFragment != "" {
			return models.NewError(models.ErrInvalidTarget, "resource must not contain a fragment")
		}
		def, err := v.resources.FindResource(ctx, raw)
		if err != nil {
			return models.NewError(models.ErrServerError, "resource lookup failed")
		}
		if def == nil {
			return models.NewError(models.ErrInvalidTarget, "resource is unknown: "+raw)
		}
		resolved = append(resolved, def.FilterScopes(scopes))
	}
	vc.Resources = resolved
	return nil
}

// ScopeValidator resolves every requested scope against the global registry
// or, failing that, any requested resource's own scope set. The first scope
// failing both checks fails validation.
//
// Runs after ResourceValidator so vc.Resources is authoritative.
type ScopeValidator struct {
	scopes ScopeRegistry
}

func NewScopeValidator(scopes ScopeRegistry) *ScopeValidator {
	return &ScopeValidator{scopes: scopes}
}

func (v *ScopeValidator) Validate(ctx context.Context, vc *Context) *models.Error {
	_, requested := vc.requestedResources()
	resolved := make([]models.ScopeDefinition, 0, len(requested))
	for _, name := range requested {
		def, err := v.scopes.FindScope(ctx, name)
		if err != nil {
			return models.NewError(models.ErrServerError, "scope lookup failed")
		}
		if def != nil {
			resolved = append(resolved, *def)
			continue
		}
		if !vc.resourceDeclaresScope(name) {
			return models.NewError(models.ErrInvalidScope, "unknown scope: "+name)
		}
	}
	vc.Scopes = resolved
	return nil
}

func (c *Context) resourceDeclaresScope(name string) bool {
	for _, r := range c.Resources {
		if r.HasScope(name) {
			return true
		}
	}
	return false
}

// requestedResources returns the resource URIs and scopes of whichever
// request variant the context carries.
func (c *Context) requestedResources() (resources, scopes []string) {
	switch {
	case c.Authorization != nil:
		return c.Authorization.Resources, c.Authorization.Scopes
	case c.Token != nil:
		return c.Token.Resources, c.Token.Scopes
	case c.BackChannel != nil:
		return nil, c.BackChannel.Scopes
	}
	return nil, nil
}
