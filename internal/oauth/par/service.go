// Package par implements RFC 9126 pushed authorization requests: the request
// payload is validated and parked server-side, and the client authorizes with
// the returned single-use request_uri.
package par

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// Response is the PAR endpoint success body.
type Response struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int64  `json:"expires_in"`
}

// Service validates and parks pushed requests.
type Service struct {
	chain      *validation.Chain
	requests   store.PARStore
	metrics    *metrics.Metrics
	log        zerolog.Logger
	requestTTL time.Duration
	now        func() time.Time
}

func NewService(chain *validation.Chain, requests store.PARStore, m *metrics.Metrics, log zerolog.Logger, requestTTL time.Duration) *Service {
	return &Service{
		chain:      chain,
		requests:   requests,
		metrics:    m,
		log:        log,
		requestTTL: requestTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Push validates the pushed payload and stores it under a fresh request_uri.
func (s *Service) Push(ctx context.Context, req models.AuthorizationRequest) (*Response, *models.Error) {
	vc := validation.NewAuthorizationContext(req, s.now())
	// PAR is a back-channel POST; its errors are JSON even once the redirect
	// URI has checked out.
	vc.DisableRedirectErrors()
	if verr := s.chain.Run(ctx, vc); verr != nil {
		s.metrics.IncValidationFailure(string(verr.Code))
		return nil, verr
	}

	requestURI, err := s.requests.Store(ctx, req, s.requestTTL)
	if err != nil {
		s.log.Error().Err(err).Str("client_id", req.ClientID).Msg("pushed request store failed")
		return nil, models.NewError(models.ErrServerError, "could not store pushed request")
	}
	return &Response{
		RequestURI: requestURI,
		ExpiresIn:  int64(s.requestTTL.Seconds()),
	}, nil
}
