package grant

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	authorizationcode "authgate/internal/oauth/store/authorization-code"
	issuedtoken "authgate/internal/oauth/store/issued-token"
	"authgate/internal/oauth/store/mocks"
	refreshtoken "authgate/internal/oauth/store/refresh-token"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

type AuthorizationCodeSuite struct {
	suite.Suite
	handler *AuthorizationCodeHandler
	grants  *authorizationcode.InMemoryGrantStore
	client  *models.ClientInfo
	ctx     context.Context
	now     time.Time
}

func (s *AuthorizationCodeSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.grants = authorizationcode.New()
	s.client = &models.ClientInfo{
		ClientID:         "web-app",
		Name:             "Web App",
		ClientSecretHash: "$2a$10$abcdefghijklmnopqrstuv",
		RedirectURIs:     []string{"https://app.example.com/cb"},
		AllowedGrants:    []models.GrantType{models.GrantAuthorizationCode, models.GrantRefreshToken},
		AllowedScopes:    []string{"openid", "profile"},
		TokenLifetime:    time.Hour,
		RefreshLifetime:  720 * time.Hour,
		Status:           models.ClientStatusActive,
	}
	issuer := token.NewIssuer([]byte("grant-test-key"), "https://auth.example.com", issuedtoken.New())
	s.handler = NewAuthorizationCodeHandler(
		s.grants,
		issuer,
		refreshtoken.New(),
		audit.NewMemoryPublisher(),
		metrics.NewWith(prometheus.NewRegistry()),
		zerolog.Nop(),
	)
}

func TestAuthorizationCodeSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationCodeSuite))
}

func (s *AuthorizationCodeSuite) storeGrant(actx models.AuthorizationContext) string {
	code, err := s.grants.Store(s.ctx, models.AuthorizedGrant{
		Session:   models.AuthSession{SessionID: "sess-1", Subject: "user-1", AuthenticationTime: s.now},
		Context:   actx,
		CreatedAt: s.now,
	}, 2*time.Minute)
	s.Require().NoError(err)
	return code
}

func (s *AuthorizationCodeSuite) tokenContext(req models.TokenRequest) *validation.Context {
	vc := validation.NewTokenContext(req, s.now)
	vc.Client = s.client
	return vc
}

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TestRedeem covers the code exchange paths.
func (s *AuthorizationCodeSuite) TestRedeem() {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	s.Run("exchanges a valid code for the full token set", func() {
		code := s.storeGrant(models.AuthorizationContext{
			ClientID:            "web-app",
			Scopes:              []string{"openid", "profile"},
			RedirectURI:         "https://app.example.com/cb",
			CodeChallenge:       s256Challenge(verifier),
			CodeChallengeMethod: models.CodeChallengeS256,
		})

		resp, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType:    models.GrantAuthorizationCode,
			ClientID:     "web-app",
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "https://app.example.com/cb",
		}))
		s.Require().Nil(herr)
		s.Require().NotEmpty(resp.AccessToken)
		s.Require().NotEmpty(resp.IDToken)
		s.Require().NotEmpty(resp.RefreshToken)
		s.Require().Equal("Bearer", resp.TokenType)
		s.Require().Equal("openid profile", resp.Scope)
	})

	s.Run("unknown code is invalid_grant", func() {
		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType: models.GrantAuthorizationCode,
			Code:      "no-such-code",
		}))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("missing code is invalid_request", func() {
		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType: models.GrantAuthorizationCode,
		}))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidRequest, herr.Code)
	})

	s.Run("code issued to another client is rejected and burned", func() {
		code := s.storeGrant(models.AuthorizationContext{ClientID: "other-app"})

		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType: models.GrantAuthorizationCode,
			Code:      code,
		}))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)

		// The failed attempt consumed the code.
		_, herr = s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType: models.GrantAuthorizationCode,
			Code:      code,
		}))
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("redirect_uri must echo the authorization request", func() {
		code := s.storeGrant(models.AuthorizationContext{
			ClientID:    "web-app",
			RedirectURI: "https://app.example.com/cb",
		})

		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType:   models.GrantAuthorizationCode,
			Code:        code,
			RedirectURI: "https://app.example.com/other",
		}))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})

	s.Run("failed code_verifier burns the code", func() {
		code := s.storeGrant(models.AuthorizationContext{
			ClientID:            "web-app",
			CodeChallenge:       s256Challenge(verifier),
			CodeChallengeMethod: models.CodeChallengeS256,
		})

		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
			GrantType:    models.GrantAuthorizationCode,
			Code:         code,
			CodeVerifier: "wrong-verifier-wrong-verifier-wrong-verifier",
		}))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)

		_, err := s.grants.FetchAndRemove(s.ctx, code)
		s.Require().Error(err)
	})

	s.Run("a second redemption of the same code fails", func() {
		code := s.storeGrant(models.AuthorizationContext{ClientID: "web-app", Scopes: []string{"profile"}})
		req := models.TokenRequest{GrantType: models.GrantAuthorizationCode, Code: code}

		_, herr := s.handler.Authorize(s.ctx, s.tokenContext(req))
		s.Require().Nil(herr)

		_, herr = s.handler.Authorize(s.ctx, s.tokenContext(req))
		s.Require().NotNil(herr)
		s.Require().Equal(models.ErrInvalidGrant, herr.Code)
	})
}

// TestStoreFailure drives the handler against a failing store.
func (s *AuthorizationCodeSuite) TestStoreFailure() {
	ctrl := gomock.NewController(s.T())
	grants := mocks.NewMockGrantStore(ctrl)
	grants.EXPECT().
		FetchAndRemove(gomock.Any(), "some-code").
		Return(nil, errors.New("backend unavailable"))

	handler := NewAuthorizationCodeHandler(
		grants,
		token.NewIssuer([]byte("grant-test-key"), "https://auth.example.com", issuedtoken.New()),
		refreshtoken.New(),
		audit.NewMemoryPublisher(),
		metrics.NewWith(prometheus.NewRegistry()),
		zerolog.Nop(),
	)

	_, herr := handler.Authorize(s.ctx, s.tokenContext(models.TokenRequest{
		GrantType: models.GrantAuthorizationCode,
		Code:      "some-code",
	}))
	s.Require().NotNil(herr)
	s.Require().Equal(models.ErrServerError, herr.Code)
}
