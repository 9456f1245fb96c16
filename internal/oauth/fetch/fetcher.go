// Package fetch resolves indirect authorization-request representations
// (request objects, request URIs, PAR references) into concrete requests
// before validation runs.
package fetch

import (
	"context"

	"authgate/internal/oauth/models"
)

// Fetcher tries one resolution strategy. A nil, nil return means the
// strategy does not apply and the composite should try the next one; a
// non-nil request replaces the inbound one.
type Fetcher interface {
	Fetch(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationRequest, *models.Error)
}

// Composite iterates strategies in registration order and returns the first
// non-pass-through outcome. When nothing applies the inbound request is the
// resolved request.
type Composite struct {
	fetchers []Fetcher
}

func NewComposite(fetchers ...Fetcher) *Composite {
	return &Composite{fetchers: fetchers}
}

func (c *Composite) Fetch(ctx context.Context, req models.AuthorizationRequest) (models.AuthorizationRequest, *models.Error) {
	for _, f := range c.fetchers {
		resolved, err := f.Fetch(ctx, req)
		if err != nil {
			return models.AuthorizationRequest{}, err
		}
		if resolved != nil {
			return *resolved, nil
		}
	}
	return req, nil
}
