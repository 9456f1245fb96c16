package endsession

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/session"
)

var logoutSigningKey = []byte("endsession-test-key")

type logoutClients map[string]*models.ClientInfo

func (p logoutClients) TryFindClient(_ context.Context, clientID string) (*models.ClientInfo, error) {
	return p[clientID], nil
}

type ProcessorSuite struct {
	suite.Suite
	processor *Processor
	sessions  *session.Service
	auditor   *audit.MemoryPublisher
	ctx       context.Context
	now       time.Time
}

func (s *ProcessorSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	clients := logoutClients{
		"web-app": {
			ClientID:       "web-app",
			Name:           "Web App",
			RedirectURIs:   []string{"https://app.example.com/cb"},
			PostLogoutURIs: []string{"https://app.example.com/bye"},
			AllowedGrants:  []models.GrantType{models.GrantAuthorizationCode},
			Status:         models.ClientStatusActive,
		},
	}

	s.sessions = session.NewService(session.NewInMemory(), 24*time.Hour).WithClock(clock)
	s.auditor = audit.NewMemoryPublisher()
	s.processor = NewProcessor(
		validation.NewEndSessionChain(clients, token.NewHMACRequestObjectValidator(logoutSigningKey)),
		s.sessions,
		s.auditor,
		zerolog.Nop(),
	).WithClock(clock)
}

// signIn seeds a session for subject and records the given clients against it.
func (s *ProcessorSuite) signIn(subject string, usedBy ...string) string {
	sess, err := s.sessions.SignIn(s.ctx, subject, "local", "urn:acr:bronze", []string{"pwd"}, "")
	s.Require().NoError(err)
	for _, clientID := range usedBy {
		s.Require().NoError(s.sessions.RecordClientUse(s.ctx, sess.SessionID, clientID))
	}
	return sess.SessionID
}

// idTokenHint signs an ID token for aud with the server key.
func (s *ProcessorSuite) idTokenHint(aud string) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "https://auth.example.com",
		"sub": "alice",
		"aud": aud,
	}).SignedString(logoutSigningKey)
	s.Require().NoError(err)
	return raw
}

// TestTermination covers session teardown and the affected-client report.
func (s *ProcessorSuite) TestTermination() {
	s.Run("terminates every presented session", func() {
		first := s.signIn("alice", "web-app")
		second := s.signIn("alice", "web-app", "spa")

		result, verr := s.processor.EndSession(s.ctx, models.EndSessionRequest{ClientID: "web-app"}, []string{first, second})
		s.Require().Nil(verr)
		s.Require().Equal(2, result.TerminatedCount)
		s.Require().ElementsMatch([]string{"web-app", "web-app", "spa"}, result.AffectedClients)
		s.Require().Empty(result.RedirectURI)

		remaining, err := s.sessions.Available(s.ctx, []string{first, second})
		s.Require().NoError(err)
		s.Require().Empty(remaining)
	})

	s.Run("unknown sessions are skipped silently", func() {
		known := s.signIn("bob", "web-app")

		result, verr := s.processor.EndSession(s.ctx, models.EndSessionRequest{ClientID: "web-app"}, []string{"sess_missing", known})
		s.Require().Nil(verr)
		s.Require().Equal(1, result.TerminatedCount)
	})

	s.Run("publishes one audit event per terminated session", func() {
		s.auditor = audit.NewMemoryPublisher()
		s.processor.audit = s.auditor

		first := s.signIn("carol")
		second := s.signIn("carol")

		_, verr := s.processor.EndSession(s.ctx, models.EndSessionRequest{ClientID: "web-app"}, []string{first, second})
		s.Require().Nil(verr)

		events := s.auditor.Events()
		s.Require().Len(events, 2)
		for _, event := range events {
			s.Require().Equal(audit.EventSessionTerminated, event.Type)
			s.Require().Equal("carol", event.Subject)
		}
	})

	s.Run("no presented sessions is a harmless logout", func() {
		result, verr := s.processor.EndSession(s.ctx, models.EndSessionRequest{ClientID: "web-app"}, nil)
		s.Require().Nil(verr)
		s.Require().Zero(result.TerminatedCount)
	})
}

// TestPostLogoutRedirect covers the rules around post_logout_redirect_uri.
func (s *ProcessorSuite) TestPostLogoutRedirect() {
	req := func() models.EndSessionRequest {
		return models.EndSessionRequest{
			ClientID:              "web-app",
			IDTokenHint:           s.idTokenHint("web-app"),
			PostLogoutRedirectURI: "https://app.example.com/bye",
		}
	}

	s.Run("registered destination is echoed back", func() {
		result, verr := s.processor.EndSession(s.ctx, req(), nil)
		s.Require().Nil(verr)
		s.Require().Equal("https://app.example.com/bye", result.RedirectURI)
	})

	s.Run("state is appended to the redirect", func() {
		r := req()
		r.State = "xyz 123"
		result, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().Nil(verr)
		s.Require().Equal("https://app.example.com/bye?state=xyz+123", result.RedirectURI)
	})

	s.Run("unregistered destination is rejected", func() {
		r := req()
		r.PostLogoutRedirectURI = "https://evil.example.com/bye"
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidRequest, verr.Code)
	})

	s.Run("redirect without id_token_hint is rejected", func() {
		r := req()
		r.IDTokenHint = ""
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidRequest, verr.Code)
	})

	s.Run("hint this server never signed is rejected", func() {
		r := req()
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"aud": "web-app",
		}).SignedString([]byte("attacker-key"))
		s.Require().NoError(err)
		r.IDTokenHint = forged
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidRequest, verr.Code)
	})

	s.Run("opaque garbage hint is rejected", func() {
		r := req()
		r.IDTokenHint = "some-id-token"
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidRequest, verr.Code)
	})

	s.Run("hint issued to another client is rejected", func() {
		r := req()
		r.IDTokenHint = s.idTokenHint("other-app")
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidRequest, verr.Code)
	})

	s.Run("unknown client is rejected", func() {
		r := req()
		r.ClientID = "ghost"
		_, verr := s.processor.EndSession(s.ctx, r, nil)
		s.Require().NotNil(verr)
		s.Require().Equal(models.ErrInvalidClient, verr.Code)
	})
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}
