// Package grant implements the token endpoint: a validation pass followed by
// dispatch to the handler owning the requested grant type.
package grant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// TokenResponse is the token-endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Handler redeems one family of grant types. Authorize runs after the token
// validation chain, so vc carries a resolved, authenticated client.
type Handler interface {
	CanHandle(gt models.GrantType) bool
	Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error)
}

// Dispatcher owns the token endpoint flow: validate, pick the handler,
// redeem, account.
type Dispatcher struct {
	chain    *validation.Chain
	handlers []Handler
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(chain *validation.Chain, m *metrics.Metrics, log zerolog.Logger, handlers ...Handler) *Dispatcher {
	return &Dispatcher{
		chain:    chain,
		handlers: handlers,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Token runs one token-endpoint exchange.
func (d *Dispatcher) Token(ctx context.Context, req models.TokenRequest) (*TokenResponse, *models.Error) {
	vc := validation.NewTokenContext(req, d.now())
	if verr := d.chain.Run(ctx, vc); verr != nil {
		d.metrics.IncValidationFailure(string(verr.Code))
		return nil, verr
	}
	for _, h := range d.handlers {
		if !h.CanHandle(req.GrantType) {
			continue
		}
		resp, herr := h.Authorize(ctx, vc)
		if herr != nil {
			d.metrics.IncGrantRedemption(string(req.GrantType), "failure")
			return nil, herr
		}
		d.metrics.IncGrantRedemption(string(req.GrantType), "success")
		return resp, nil
	}
	return nil, models.NewError(models.ErrUnsupportedGrantType, "no handler for grant_type")
}
