// Package device implements the RFC 8628 device authorization flow: issuing
// device/user code pairs and verifying user codes on the interaction device.
// Token-endpoint polling lives with the other grant handlers.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
	"authgate/pkg/platform/sentinel"
)

// Authorization is the device_authorization endpoint response body.
type Authorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// Service owns device-flow state outside the token endpoint: creating
// pending authorizations and settling them from the verification UI.
type Service struct {
	clients         validation.ClientProvider
	devices         store.DeviceStore
	limiter         *RateLimiter
	audit           audit.Publisher
	metrics         *metrics.Metrics
	log             zerolog.Logger
	verificationURI string
	codeTTL         time.Duration
	pollInterval    time.Duration
	now             func() time.Time
}

func NewService(
	clients validation.ClientProvider,
	devices store.DeviceStore,
	limiter *RateLimiter,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
	verificationURI string,
	codeTTL, pollInterval time.Duration,
) *Service {
	return &Service{
		clients:         clients,
		devices:         devices,
		limiter:         limiter,
		audit:           auditor,
		metrics:         m,
		log:             log,
		verificationURI: verificationURI,
		codeTTL:         codeTTL,
		pollInterval:    pollInterval,
		now:             time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Begin creates a pending authorization for the requesting device.
func (s *Service) Begin(ctx context.Context, input models.DeviceAuthorizationInput) (*Authorization, *models.Error) {
	client, err := s.clients.TryFindClient(ctx, input.ClientID)
	if err != nil {
		return nil, models.NewError(models.ErrServerError, "client lookup failed")
	}
	if client == nil || !client.IsActive() {
		return nil, models.NewError(models.ErrInvalidClient, "unknown client")
	}
	if !client.CanUseGrant(models.GrantDeviceCode) {
		return nil, models.NewError(models.ErrUnauthorizedClient, "client may not use the device flow")
	}
	for _, scope := range input.Scopes {
		if !client.HasScope(scope) {
			return nil, models.NewError(models.ErrInvalidScope, "scope is not registered for this client")
		}
	}

	now := s.now()
	rec := &models.DeviceAuthorizationRecord{
		DeviceCode: "dc_" + uuid.NewString(),
		UserCode:   NewUserCode(),
		ClientID:   client.ClientID,
		Scopes:     input.Scopes,
		Status:     models.DeviceStatusPending,
		Interval:   s.pollInterval,
		NextPollAt: now,
		ExpiresAt:  now.Add(s.codeTTL),
		CreatedAt:  now,
	}
	if err := s.devices.Create(ctx, rec, s.codeTTL); err != nil {
		s.log.Error().Err(err).Str("client_id", client.ClientID).Msg("device authorization create failed")
		return nil, models.NewError(models.ErrServerError, "could not create device authorization")
	}

	return &Authorization{
		DeviceCode:              rec.DeviceCode,
		UserCode:                rec.UserCode,
		VerificationURI:         s.verificationURI,
		VerificationURIComplete: s.verificationURI + "?user_code=" + rec.UserCode,
		ExpiresIn:               int64(s.codeTTL.Seconds()),
		Interval:                int64(s.pollInterval.Seconds()),
	}, nil
}

// Verify resolves a typed user code to its pending authorization. callerKey
// identifies the caller for rate limiting; failed lookups arm an exponential
// lockout and successes clear it.
func (s *Service) Verify(ctx context.Context, rawUserCode, callerKey string) (*models.DeviceAuthorizationRecord, *models.Error) {
	userCode := NormalizeUserCode(rawUserCode)
	key := userCode + "|" + callerKey
	if retryAfter, ok := s.limiter.Allow(key); !ok {
		verr := models.NewError(models.ErrSlowDown, "too many verification attempts")
		verr.RetryAfterSeconds = int(retryAfter.Seconds()) + 1
		return nil, verr
	}

	rec, err := s.devices.FindByUserCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.limiter.Fail(key)
			return nil, models.NewError(models.ErrInvalidGrant, "user code is unknown or expired")
		}
		return nil, models.NewError(models.ErrServerError, "user code lookup failed")
	}
	now := s.now()
	if now.After(rec.ExpiresAt) || rec.Status != models.DeviceStatusPending {
		s.limiter.Fail(key)
		return nil, models.NewError(models.ErrInvalidGrant, "user code is unknown or expired")
	}

	s.limiter.Reset(key)
	return rec, nil
}

// Approve settles a verified authorization with the end user's session.
func (s *Service) Approve(ctx context.Context, userCode string, sess models.AuthSession) *models.Error {
	rec, verr := s.findPending(ctx, userCode)
	if verr != nil {
		return verr
	}
	grant := models.AuthorizedGrant{
		Session: sess,
		Context: models.AuthorizationContext{
			ClientID: rec.ClientID,
			Scopes:   rec.Scopes,
		},
		CreatedAt: s.now(),
	}
	if err := rec.Approve(grant); err != nil {
		return models.NewError(models.ErrInvalidGrant, "device authorization is no longer pending")
	}
	if err := s.devices.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("client_id", rec.ClientID).Msg("device approval persist failed")
		return models.NewError(models.ErrServerError, "could not record approval")
	}
	s.metrics.IncDeviceVerification("approved")
	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventDeviceApproved,
		Subject:   sess.Subject,
		ClientID:  rec.ClientID,
		SessionID: sess.SessionID,
		At:        s.now(),
	})
	return nil
}

// Deny settles a verified authorization with a refusal.
func (s *Service) Deny(ctx context.Context, userCode string, sess models.AuthSession) *models.Error {
	rec, verr := s.findPending(ctx, userCode)
	if verr != nil {
		return verr
	}
	if err := rec.Deny(); err != nil {
		return models.NewError(models.ErrInvalidGrant, "device authorization is no longer pending")
	}
	if err := s.devices.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("client_id", rec.ClientID).Msg("device denial persist failed")
		return models.NewError(models.ErrServerError, "could not record denial")
	}
	s.metrics.IncDeviceVerification("denied")
	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventDeviceDenied,
		Subject:   sess.Subject,
		ClientID:  rec.ClientID,
		SessionID: sess.SessionID,
		At:        s.now(),
	})
	return nil
}

func (s *Service) findPending(ctx context.Context, rawUserCode string) (*models.DeviceAuthorizationRecord, *models.Error) {
	rec, err := s.devices.FindByUserCode(ctx, NormalizeUserCode(rawUserCode))
	if err != nil {
		return nil, models.NewError(models.ErrInvalidGrant, "user code is unknown or expired")
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, models.NewError(models.ErrInvalidGrant, "user code is unknown or expired")
	}
	return rec, nil
}
