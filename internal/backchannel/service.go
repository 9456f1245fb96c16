// Package backchannel implements CIBA: clients request authentication of a
// user who is not present on the requesting device, and the user settles the
// request from their own authentication device.
package backchannel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// SubjectResolver turns a login hint into a known subject. Implementations
// sit outside the engine; absence of a match returns an error that surfaces
// as unknown_user_id semantics (invalid_request here, no account oracle).
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, loginHint string) (string, error)
}

// Request is the bc-authorize endpoint response body.
type Request struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int64  `json:"expires_in"`
	Interval  int64  `json:"interval"`
}

// Service owns back-channel request state outside the token endpoint.
type Service struct {
	chain        *validation.Chain
	subjects     SubjectResolver
	requests     store.BackChannelStore
	audit        audit.Publisher
	metrics      *metrics.Metrics
	log          zerolog.Logger
	requestTTL   time.Duration
	maxTTL       time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

func NewService(
	chain *validation.Chain,
	subjects SubjectResolver,
	requests store.BackChannelStore,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
	requestTTL, maxTTL, pollInterval time.Duration,
) *Service {
	return &Service{
		chain:        chain,
		subjects:     subjects,
		requests:     requests,
		audit:        auditor,
		metrics:      m,
		log:          log,
		requestTTL:   requestTTL,
		maxTTL:       maxTTL,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Begin validates and persists a back-channel authentication request.
func (s *Service) Begin(ctx context.Context, req models.BackChannelAuthenticationRequest) (*Request, *models.Error) {
	now := s.now()
	vc := validation.NewBackChannelContext(req, now)
	if verr := s.chain.Run(ctx, vc); verr != nil {
		s.metrics.IncValidationFailure(string(verr.Code))
		return nil, verr
	}

	subject, err := s.subjects.ResolveSubject(ctx, req.LoginHint)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidRequest, "login hint does not identify a known user")
	}

	ttl := s.requestTTL
	if req.RequestedExpiry != nil {
		requested := time.Duration(*req.RequestedExpiry) * time.Second
		if requested > 0 && requested < ttl {
			ttl = requested
		}
	}
	if s.maxTTL > 0 && ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	scopes := make([]string, 0, len(vc.Scopes))
	for _, def := range vc.Scopes {
		scopes = append(scopes, def.Name)
	}
	rec := &models.BackChannelRequestRecord{
		AuthReqID:      "cr_" + uuid.NewString(),
		ClientID:       vc.Client.ClientID,
		Subject:        subject,
		Scopes:         scopes,
		BindingMessage: req.BindingMessage,
		Status:         models.CIBAStatusPending,
		Interval:       s.pollInterval,
		NextPollAt:     now,
		ExpiresAt:      now.Add(ttl),
		CreatedAt:      now,
	}
	if err := s.requests.Create(ctx, rec, ttl); err != nil {
		s.log.Error().Err(err).Str("client_id", rec.ClientID).Msg("back-channel request create failed")
		return nil, models.NewError(models.ErrServerError, "could not create authentication request")
	}

	return &Request{
		AuthReqID: rec.AuthReqID,
		ExpiresIn: int64(ttl.Seconds()),
		Interval:  int64(s.pollInterval.Seconds()),
	}, nil
}

// Authenticate settles a pending request with the session established on the
// user's authentication device. The session subject must be the one the
// request named.
func (s *Service) Authenticate(ctx context.Context, authReqID string, sess models.AuthSession) *models.Error {
	rec, verr := s.findPending(ctx, authReqID)
	if verr != nil {
		return verr
	}
	if rec.Subject != sess.Subject {
		return models.NewError(models.ErrAccessDenied, "request was made for a different user")
	}
	grant := models.AuthorizedGrant{
		Session: sess,
		Context: models.AuthorizationContext{
			ClientID: rec.ClientID,
			Scopes:   rec.Scopes,
		},
		CreatedAt: s.now(),
	}
	if err := rec.Authenticate(grant); err != nil {
		return models.NewError(models.ErrInvalidGrant, "authentication request is no longer pending")
	}
	if err := s.requests.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("client_id", rec.ClientID).Msg("back-channel approval persist failed")
		return models.NewError(models.ErrServerError, "could not record authentication")
	}
	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventAuthorizationGranted,
		Subject:   sess.Subject,
		ClientID:  rec.ClientID,
		SessionID: sess.SessionID,
		Detail:    "ciba",
		At:        s.now(),
	})
	return nil
}

// Deny settles a pending request with a refusal.
func (s *Service) Deny(ctx context.Context, authReqID string, sess models.AuthSession) *models.Error {
	rec, verr := s.findPending(ctx, authReqID)
	if verr != nil {
		return verr
	}
	if rec.Subject != sess.Subject {
		return models.NewError(models.ErrAccessDenied, "request was made for a different user")
	}
	if err := rec.Deny(); err != nil {
		return models.NewError(models.ErrInvalidGrant, "authentication request is no longer pending")
	}
	if err := s.requests.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("client_id", rec.ClientID).Msg("back-channel denial persist failed")
		return models.NewError(models.ErrServerError, "could not record denial")
	}
	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventAuthorizationDenied,
		Subject:   sess.Subject,
		ClientID:  rec.ClientID,
		SessionID: sess.SessionID,
		Detail:    "ciba",
		At:        s.now(),
	})
	return nil
}

func (s *Service) findPending(ctx context.Context, authReqID string) (*models.BackChannelRequestRecord, *models.Error) {
	rec, err := s.requests.Find(ctx, authReqID)
	if err != nil {
		return nil, models.NewError(models.ErrInvalidGrant, "authentication request is unknown or expired")
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, models.NewError(models.ErrInvalidGrant, "authentication request is unknown or expired")
	}
	return rec, nil
}
