package grant

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	issuedtoken "authgate/internal/oauth/store/issued-token"
	refreshtoken "authgate/internal/oauth/store/refresh-token"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
	"authgate/pkg/platform/sentinel"
)

type RefreshTokenSuite struct {
	suite.Suite
	handler *RefreshTokenHandler
	refresh *refreshtoken.InMemoryRefreshTokenStore
	issued  *issuedtoken.InMemoryIssuedTokenStore
	issuer  *token.Issuer
	auditor *audit.MemoryPublisher
	client  *models.ClientInfo
	ctx     context.Context
	now     time.Time
}

func (s *RefreshTokenSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.refresh = refreshtoken.New()
	s.issued = issuedtoken.New()
	s.auditor = audit.NewMemoryPublisher()
	s.issuer = token.NewIssuer([]byte("grant-test-key"), "https://auth.example.com", s.issued)
	s.client = &models.ClientInfo{
		ClientID:         "web-app",
		Name:             "Web App",
		ClientSecretHash: "$2a$10$abcdefghijklmnopqrstuv",
		AllowedGrants:    []models.GrantType{models.GrantAuthorizationCode, models.GrantRefreshToken},
		AllowedScopes:    []string{"openid", "profile"},
		TokenLifetime:    time.Hour,
		RefreshLifetime:  720 * time.Hour,
		RotateRefresh:    true,
		Status:           models.ClientStatusActive,
	}
	s.handler = NewRefreshTokenHandler(
		s.refresh,
		s.issued,
		s.issuer,
		s.auditor,
		metrics.NewWith(prometheus.NewRegistry()),
		zerolog.Nop(),
	)
}

func TestRefreshTokenSuite(t *testing.T) {
	suite.Run(t, new(RefreshTokenSuite))
}

func (s *RefreshTokenSuite) seedToken(value, clientID string, scopes []string) {
	s.Require().NoError(s.refresh.Create(s.ctx, &models.RefreshTokenRecord{
		Token: value,
		Grant: models.AuthorizedGrant{
			Session: models.AuthSession{SessionID: "sess-1", Subject: "user-1", AuthenticationTime: s.now},
			Context: models.AuthorizationContext{ClientID: clientID, Scopes: scopes},
		},
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(720 * time.Hour),
	}))
}

func (s *RefreshTokenSuite) tokenContext(req models.TokenRequest) *validation.Context {
	vc := validation.NewTokenContext(req, s.now)
	vc.Client = s.client
	return vc
}

func (s *RefreshTokenSuite) exchange(refreshToken string, scopes []string) (*TokenResponse, *models.Error) {
	return s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
		GrantType:    models.GrantRefreshToken,
		ClientID:     "web-app",
		RefreshToken: refreshToken,
		Scopes:       scopes,
	}))
}

// TestRotation covers the rotate-on-use policy.
func (s *RefreshTokenSuite) TestRotation() {
	s.Run("rotating client gets a replacement token", func() {
		s.seedToken("rt_old", "web-app", []string{"openid"})

		resp, herr := s.exchange("rt_old", nil)
		s.Require().Nil(herr)
		s.Require().NotEmpty(resp.AccessToken)
		s.Require().NotEmpty(resp.RefreshToken)
		s.Require().NotEqual("rt_old", resp.RefreshToken)

		// The replacement is live; the old token is spent.
		_, err := s.refresh.Consume(s.ctx, resp.RefreshToken, s.now)
		s.Require().NoError(err)
		_, err = s.refresh.Consume(s.ctx, "rt_old", s.now)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("non-rotating client keeps the same token usable", func() {
		s.client.RotateRefresh = false
		s.seedToken("rt_stable", "web-app", []string{"openid"})

		resp, herr := s.exchange("rt_stable", nil)
		s.Require().Nil(herr)
		s.Require().Equal("rt_stable", resp.RefreshToken)

		resp, herr = s.exchange("rt_stable", nil)
		s.Require().Nil(herr)
		s.Require().Equal("rt_stable", resp.RefreshToken)
	})
}

// TestReplayDetection covers presenting a rotated token twice.
func (s *RefreshTokenSuite) TestReplayDetection() {
	s.seedToken("rt_old", "web-app", []string{"openid"})

	resp, herr := s.exchange("rt_old", nil)
	s.Require().Nil(herr)

	// Find the access token's JTI bookkeeping before the replay.
	accessJTI := s.verifiedJTI(resp.AccessToken)
	meta, err := s.issued.Find(s.ctx, accessJTI)
	s.Require().NoError(err)
	s.Require().True(meta.Active(s.now))

	_, herr = s.exchange("rt_old", nil)
	s.Require().NotNil(herr)
	s.Require().Equal(models.ErrInvalidGrant, herr.Code)

	// Replay revoked every live token for the subject.
	meta, err = s.issued.Find(s.ctx, accessJTI)
	s.Require().NoError(err)
	s.Require().False(meta.Active(s.now))

	events := s.auditor.Events()
	s.Require().NotEmpty(events)
	s.Require().Equal(audit.EventRefreshReuse, events[len(events)-1].Type)

	// The rotated replacement is part of the compromised family and is
	// dead as well.
	_, herr = s.exchange(resp.RefreshToken, nil)
	s.Require().NotNil(herr)
	s.Require().Equal(models.ErrInvalidGrant, herr.Code)
}

// TestScopeNarrowing covers requesting a subset of the original grant.
func (s *RefreshTokenSuite) TestScopeNarrowing() {
	s.Run("subset request narrows the minted scopes", func() {
		s.seedToken("rt_1", "web-app", []string{"openid", "profile"})

		resp, herr := s.exchange("rt_1", []string{"openid"})
		s.Require().Nil(herr)
		s.Require().Equal("openid", resp.Scope)
	})

	s.Run("scope escalation is invalid_scope", func() {
		s.seedToken("rt_2", "web-app", []string{"openid"})

		_, herr := s.exchange("rt_2", []string{"openid", "profile"})
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidScope, herr.Code)
	})
}

// TestOwnershipAndAbsence covers the failure modes shared with other grants.
func (s *RefreshTokenSuite) TestOwnershipAndAbsence() {
	s.Run("token issued to another client is invalid_grant", func() {
		s.seedToken("rt_foreign", "other-app", []string{"openid"})

		_, herr := s.exchange("rt_foreign", nil)
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("unknown token is invalid_grant", func() {
		_, herr := s.exchange("rt_missing", nil)
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("missing token is invalid_request", func() {
		_, herr := s.exchange("", nil)
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidRequest, herr.Code)
	})
}

// verifiedJTI extracts the jti claim from a minted access token.
func (s *RefreshTokenSuite) verifiedJTI(raw string) string {
	result, err := token.NewIntrospector([]byte("grant-test-key"), s.issued).Introspect(s.ctx, raw)
	s.Require().NoError(err)
	s.Require().NotEmpty(result.JTI)
	return result.JTI
}
