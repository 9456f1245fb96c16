package validation

import (
	"context"

	"authgate/internal/oauth/models"
)

// Validator performs exactly one check against the request context. It either
// returns a protocol error, short-circuiting the chain, or records a resolved
// fact on the context and lets the chain continue.
type Validator interface {
	Validate(ctx context.Context, vc *Context) *models.Error
}

// Chain runs validators in a fixed registration order. Order is a correctness
// invariant, not an optimization: client resolution must precede anything
// that reads vc.Client, and scope checks must follow resource resolution.
type Chain struct {
	validators []Validator
}

// NewChain fixes the validator order at construction.
func NewChain(validators ...Validator) *Chain {
	return &Chain{validators: validators}
}

// Run folds the chain over the context, returning the first error routed per
// the context's current channel, or nil when every validator passed.
func (c *Chain) Run(ctx context.Context, vc *Context) *models.Error {
	for _, v := range c.validators {
		if err := v.Validate(ctx, vc); err != nil {
			return vc.Route(err)
		}
	}
	return nil
}
