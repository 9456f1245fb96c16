package grant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/registry"
	devicestore "authgate/internal/oauth/store/device"
	issuedtoken "authgate/internal/oauth/store/issued-token"
	refreshtoken "authgate/internal/oauth/store/refresh-token"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

type dispatcherClients map[string]*models.ClientInfo

func (d dispatcherClients) TryFindClient(_ context.Context, clientID string) (*models.ClientInfo, error) {
	return d[clientID], nil
}

// staticAuthenticator accepts exactly one credential pair.
type staticAuthenticator struct {
	username, password, subject string
}

func (a staticAuthenticator) Authenticate(_ context.Context, username, password string) (string, error) {
	if username != a.username || password != a.password {
		return "", errors.New("bad credentials")
	}
	return a.subject, nil
}

type DispatcherSuite struct {
	suite.Suite
	dispatcher *Dispatcher
	devices    *devicestore.InMemoryDeviceStore
	ctx        context.Context
	now        time.Time
}

func (s *DispatcherSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	s.Require().NoError(err)

	clients := dispatcherClients{
		"service": {
			ClientID:         "service",
			Name:             "Service",
			ClientSecretHash: string(hash),
			AllowedGrants:    []models.GrantType{models.GrantClientCredentials, models.GrantPassword},
			AllowedScopes:    []string{"jobs:run"},
			TokenLifetime:    time.Hour,
			Status:           models.ClientStatusActive,
		},
		"tv-app": {
			ClientID:      "tv-app",
			Name:          "TV App",
			AllowedGrants: []models.GrantType{models.GrantDeviceCode},
			AllowedScopes: []string{"openid"},
			TokenLifetime: time.Hour,
			Status:        models.ClientStatusActive,
		},
	}

	reg := registry.NewInMemory()
	reg.AddScope(models.ScopeDefinition{Name: "jobs:run"})
	reg.AddScope(models.ScopeDefinition{Name: "openid"})

	s.devices = devicestore.New()
	m := metrics.NewWith(prometheus.NewRegistry())
	log := zerolog.Nop()
	auditor := audit.NewMemoryPublisher()
	issued := issuedtoken.New()
	issuer := token.NewIssuer([]byte("dispatch-test-key"), "https://auth.example.com", issued)
	refresh := refreshtoken.New()

	s.dispatcher = NewDispatcher(
		validation.NewTokenChain(clients, reg, reg),
		m,
		log,
		NewClientCredentialsHandler(issuer, refresh, m, log),
		NewPasswordHandler(staticAuthenticator{"alice", "hunter2", "user-alice"}, issuer, refresh, m, log),
		NewDeviceCodeHandler(s.devices, issuer, refresh, auditor, m, log),
	).WithClock(func() time.Time { return s.now })
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

// TestClientCredentials covers machine-to-machine issuance through the full
// validation chain.
func (s *DispatcherSuite) TestClientCredentials() {
	s.Run("authenticated client gets a token with itself as subject", func() {
		resp, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantClientCredentials,
			ClientID:     "service",
			ClientSecret: "s3cret",
			Scopes:       []string{"jobs:run"},
		})
		s.Require().Nil(herr)
		s.Require().NotEmpty(resp.AccessToken)
		s.Require().Empty(resp.RefreshToken)
		s.Require().Empty(resp.IDToken)
		s.Require().Equal("jobs:run", resp.Scope)
	})

	s.Run("wrong secret is invalid_client", func() {
		_, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantClientCredentials,
			ClientID:     "service",
			ClientSecret: "wrong",
		})
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidClient, herr.Code)
	})

	s.Run("missing secret is invalid_client", func() {
		_, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType: models.GrantClientCredentials,
			ClientID:  "service",
		})
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidClient, herr.Code)
	})

	s.Run("public client may not use client_credentials", func() {
		_, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType: models.GrantClientCredentials,
			ClientID:  "tv-app",
		})
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrUnauthorizedClient, herr.Code)
	})
}

// TestPasswordGrant covers the legacy resource-owner grant.
func (s *DispatcherSuite) TestPasswordGrant() {
	s.Run("valid credentials mint tokens for the resource owner", func() {
		resp, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantPassword,
			ClientID:     "service",
			ClientSecret: "s3cret",
			Username:     "alice",
			Password:     "hunter2",
			Scopes:       []string{"jobs:run"},
		})
		s.Require().Nil(herr)
		s.Require().NotEmpty(resp.AccessToken)
	})

	s.Run("bad credentials and unknown users fail identically", func() {
		badPassword, _ := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantPassword,
			ClientID:     "service",
			ClientSecret: "s3cret",
			Username:     "alice",
			Password:     "wrong",
		})
		unknownUser, _ := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantPassword,
			ClientID:     "service",
			ClientSecret: "s3cret",
			Username:     "nobody",
			Password:     "hunter2",
		})
		s.Require().Nil(badPassword)
		s.Require().Nil(unknownUser)
	})

	s.Run("credential failure is invalid_grant", func() {
		_, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:    models.GrantPassword,
			ClientID:     "service",
			ClientSecret: "s3cret",
			Username:     "alice",
			Password:     "wrong",
		})
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})
}

// TestDeviceCodePolling covers poll outcomes through the dispatcher.
func (s *DispatcherSuite) TestDeviceCodePolling() {
	pendingRecord := func(deviceCode string) *models.DeviceAuthorizationRecord {
		return &models.DeviceAuthorizationRecord{
			DeviceCode: deviceCode,
			UserCode:   "BCDF-GHJK",
			ClientID:   "tv-app",
			Scopes:     []string{"openid"},
			Status:     models.DeviceStatusPending,
			Interval:   5 * time.Second,
			NextPollAt: s.now,
			ExpiresAt:  s.now.Add(10 * time.Minute),
			CreatedAt:  s.now,
		}
	}
	poll := func(deviceCode string) (*TokenResponse, *models.Error) {
		return s.dispatcher.Token(s.ctx, models.TokenRequest{
			GrantType:  models.GrantDeviceCode,
			ClientID:   "tv-app",
			DeviceCode: deviceCode,
		})
	}

	s.Run("pending authorization polls as authorization_pending", func() {
		s.Require().NoError(s.devices.Create(s.ctx, pendingRecord("dc_pending"), 10*time.Minute))

		_, herr := poll("dc_pending")
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrAuthorizationPending, herr.Code)
	})

	s.Run("polling again inside the interval is slow_down with Retry-After", func() {
		s.Require().NoError(s.devices.Create(s.ctx, pendingRecord("dc_eager"), 10*time.Minute))

		_, herr := poll("dc_eager")
		s.Require().Equal(models.ErrAuthorizationPending, herr.Code)

		_, herr = poll("dc_eager")
		s.Require().Equal(models.ErrSlowDown, herr.Code)
		s.Require().Equal(5, herr.RetryAfterSeconds)
	})

	s.Run("approved authorization exchanges for tokens", func() {
		rec := pendingRecord("dc_ok")
		s.Require().NoError(rec.Approve(models.AuthorizedGrant{
			Session: models.AuthSession{SessionID: "sess-1", Subject: "user-1", AuthenticationTime: s.now},
			Context: models.AuthorizationContext{ClientID: "tv-app", Scopes: []string{"openid"}},
		}))
		s.Require().NoError(s.devices.Create(s.ctx, rec, 10*time.Minute))

		resp, herr := poll("dc_ok")
		s.Require().Nil(herr)
		s.Require().NotEmpty(resp.AccessToken)
		s.Require().NotEmpty(resp.IDToken)

		// The poll consumed the record; the next one finds nothing.
		_, herr = poll("dc_ok")
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("expired authorization polls as expired_token", func() {
		rec := pendingRecord("dc_stale")
		rec.ExpiresAt = s.now.Add(-time.Minute)
		s.Require().NoError(s.devices.Create(s.ctx, rec, 10*time.Minute))

		_, herr := poll("dc_stale")
		s.Require().Equal(models.ErrExpiredToken, herr.Code)
	})
}

// TestUnsupportedGrant checks the dispatcher's fallback.
func (s *DispatcherSuite) TestUnsupportedGrant() {
	_, herr := s.dispatcher.Token(s.ctx, models.TokenRequest{
		GrantType:    "urn:example:unknown",
		ClientID:     "service",
		ClientSecret: "s3cret",
	})
	s.Require().NotNil(herr)
	s.Require().Equal(models.ErrUnsupportedGrantType, herr.Code)
}
