package device

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	devicestore "authgate/internal/oauth/store/device"
	"authgate/internal/platform/metrics"
)

type serviceClients map[string]*models.ClientInfo

func (c serviceClients) TryFindClient(_ context.Context, clientID string) (*models.ClientInfo, error) {
	return c[clientID], nil
}

type DeviceServiceSuite struct {
	suite.Suite
	service *Service
	devices *devicestore.InMemoryDeviceStore
	auditor *audit.MemoryPublisher
	ctx     context.Context
	now     time.Time
}

func (s *DeviceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.devices = devicestore.New()
	s.auditor = audit.NewMemoryPublisher()
	clock := func() time.Time { return s.now }

	clients := serviceClients{
		"tv-app": {
			ClientID:      "tv-app",
			Name:          "TV App",
			AllowedGrants: []models.GrantType{models.GrantDeviceCode},
			AllowedScopes: []string{"openid", "profile"},
			Status:        models.ClientStatusActive,
		},
		"web-app": {
			ClientID:         "web-app",
			Name:             "Web App",
			ClientSecretHash: "$2a$10$abcdefghijklmnopqrstuv",
			RedirectURIs:     []string{"https://app.example.com/cb"},
			AllowedGrants:    []models.GrantType{models.GrantAuthorizationCode},
			AllowedScopes:    []string{"openid"},
			Status:           models.ClientStatusActive,
		},
	}

	s.service = NewService(
		clients,
		s.devices,
		NewRateLimiter().WithClock(clock),
		s.auditor,
		metrics.NewWith(prometheus.NewRegistry()),
		zerolog.Nop(),
		"https://auth.example.com/device",
		10*time.Minute,
		5*time.Second,
	).WithClock(clock)
}

func TestDeviceServiceSuite(t *testing.T) {
	suite.Run(t, new(DeviceServiceSuite))
}

func (s *DeviceServiceSuite) begin() *Authorization {
	auth, verr := s.service.Begin(s.ctx, models.DeviceAuthorizationInput{
		ClientID: "tv-app",
		Scopes:   []string{"openid"},
	})
	s.Require().Nil(verr)
	return auth
}

func (s *DeviceServiceSuite) userSession() models.AuthSession {
	return models.AuthSession{SessionID: "sess-1", Subject: "user-1", AuthenticationTime: s.now}
}

// TestBegin covers device authorization creation.
func (s *DeviceServiceSuite) TestBegin() {
	s.Run("creates a pending authorization with verification URIs", func() {
		auth := s.begin()
		s.Require().NotEmpty(auth.DeviceCode)
		s.Require().Len(auth.UserCode, 9)
		s.Require().Equal("https://auth.example.com/device", auth.VerificationURI)
		s.Require().Equal("https://auth.example.com/device?user_code="+auth.UserCode, auth.VerificationURIComplete)
		s.Require().Equal(int64(600), auth.ExpiresIn)
		s.Require().Equal(int64(5), auth.Interval)
	})

	s.Run("unknown client is rejected", func() {
		_, verr := s.service.Begin(s.ctx, models.DeviceAuthorizationInput{ClientID: "ghost"})
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidClient, verr.Code)
	})

	s.Run("client without the device grant is rejected", func() {
		_, verr := s.service.Begin(s.ctx, models.DeviceAuthorizationInput{ClientID: "web-app"})
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrUnauthorizedClient, verr.Code)
	})

	s.Run("unregistered scope is rejected", func() {
		_, verr := s.service.Begin(s.ctx, models.DeviceAuthorizationInput{
			ClientID: "tv-app",
			Scopes:   []string{"admin"},
		})
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidScope, verr.Code)
	})
}

// TestVerify covers user-code resolution, normalization forgiving typed
// input, and the per-caller lockout.
func (s *DeviceServiceSuite) TestVerify() {
	s.Run("typed code resolves regardless of case and separators", func() {
		auth := s.begin()
		typed := " " + typedForm(auth.UserCode) + " "

		rec, verr := s.service.Verify(s.ctx, typed, "caller-1")
		s.Require().Nil(verr)
		s.Require().Equal(auth.DeviceCode, rec.DeviceCode)
	})

	s.Run("unknown code fails and arms the lockout", func() {
		_, verr := s.service.Verify(s.ctx, "BCDF-GHJK", "caller-2")
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)

		_, verr = s.service.Verify(s.ctx, "BCDF-GHJK", "caller-2")
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrSlowDown, verr.Code)
		s.Require().Positive(verr.RetryAfterSeconds)
	})

	s.Run("lockout is scoped to the caller and code pair", func() {
		auth := s.begin()
		_, verr := s.service.Verify(s.ctx, "BCDF-GHJK", "caller-3")
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)

		// Same caller, different code: unaffected.
		_, verr = s.service.Verify(s.ctx, auth.UserCode, "caller-3")
		s.Require().Nil(verr)
	})

	s.Run("lockout expires after the backoff window", func() {
		_, verr := s.service.Verify(s.ctx, "BCDF-GHJK", "caller-4")
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)

		s.now = s.now.Add(2 * time.Second)
		_, verr = s.service.Verify(s.ctx, "BCDF-GHJK", "caller-4")
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)
	})

	s.Run("expired authorization verifies as unknown", func() {
		auth := s.begin()
		s.now = s.now.Add(time.Hour)
		_, verr := s.service.Verify(s.ctx, auth.UserCode, "caller-5")
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)
	})
}

// TestApproveAndDeny covers the settlement side.
func (s *DeviceServiceSuite) TestApproveAndDeny() {
	s.Run("approval attaches the session's grant", func() {
		auth := s.begin()
		s.Require().Nil(s.service.Approve(s.ctx, auth.UserCode, s.userSession()))

		rec, err := s.devices.Poll(s.ctx, auth.DeviceCode, s.now)
		s.Require().NoError(err)
		s.Require().Equal(models.DeviceStatusAuthorized, rec.Status)
		s.Require().Equal("user-1", rec.Grant.Session.Subject)
		s.Require().Equal("tv-app", rec.Grant.Context.ClientID)
		s.Require().Equal([]string{"openid"}, rec.Grant.Context.Scopes)

		events := s.auditor.Events()
		s.Require().NotEmpty(events)
		s.Require().Equal(audit.EventDeviceApproved, events[len(events)-1].Type)
	})

	s.Run("denial settles the record as denied", func() {
		auth := s.begin()
		s.Require().Nil(s.service.Deny(s.ctx, auth.UserCode, s.userSession()))

		_, err := s.devices.Poll(s.ctx, auth.DeviceCode, s.now)
		s.Require().Equal(models.ErrAccessDenied, models.PollErrorCode(err))
	})

	s.Run("settling twice fails", func() {
		auth := s.begin()
		s.Require().Nil(s.service.Approve(s.ctx, auth.UserCode, s.userSession()))

		verr := s.service.Deny(s.ctx, auth.UserCode, s.userSession())
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)
	})

	s.Run("unknown code cannot be approved", func() {
		verr := s.service.Approve(s.ctx, "BCDF-GHJK", s.userSession())
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidGrant, verr.Code)
	})
}

// typedForm renders a canonical code the way users tend to type it.
func typedForm(code string) string {
	out := make([]byte, 0, len(code)+1)
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c == '-' {
			out = append(out, ' ')
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
