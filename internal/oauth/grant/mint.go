package grant

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/platform/metrics"
)

// minter is the shared issuance tail every handler ends in: access token
// always, ID token when the grant carries openid, refresh token when the
// client is registered for the refresh grant.
type minter struct {
	issuer  *token.Issuer
	refresh store.RefreshTokenStore
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func (m *minter) mint(ctx context.Context, client *models.ClientInfo, grant models.AuthorizedGrant, gt models.GrantType) (*TokenResponse, *models.Error) {
	access, err := m.issuer.CreateAccessToken(ctx, grant.Session, grant.Context, client)
	if err != nil {
		m.log.Error().Err(err).Str("client_id", client.ClientID).Msg("access token issuance failed")
		return nil, models.NewError(models.ErrServerError, "could not issue access token")
	}
	m.metrics.IncTokenIssued("access_token")

	resp := &TokenResponse{
		AccessToken: access.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(access.ExpiresAt).Seconds()),
		Scope:       strings.Join(grant.Context.Scopes, " "),
	}

	if containsScope(grant.Context.Scopes, "openid") {
		idToken, err := m.issuer.CreateIDToken(ctx, grant.Session, grant.Context, client, token.IDTokenArtifacts{
			AccessToken: access.Token,
		})
		if err != nil {
			m.log.Error().Err(err).Str("client_id", client.ClientID).Msg("id token issuance failed")
			return nil, models.NewError(models.ErrServerError, "could not issue id token")
		}
		resp.IDToken = idToken.Token
		m.metrics.IncTokenIssued("id_token")
	}

	// The refresh handler owns rotation itself; client_credentials never gets
	// a refresh token.
	if gt != models.GrantClientCredentials && gt != models.GrantRefreshToken && client.CanUseGrant(models.GrantRefreshToken) {
		value, err := m.createRefreshToken(ctx, client, grant)
		if err != nil {
			m.log.Error().Err(err).Str("client_id", client.ClientID).Msg("refresh token issuance failed")
			return nil, models.NewError(models.ErrServerError, "could not issue refresh token")
		}
		resp.RefreshToken = value
		m.metrics.IncTokenIssued("refresh_token")
	}
	return resp, nil
}

func (m *minter) createRefreshToken(ctx context.Context, client *models.ClientInfo, grant models.AuthorizedGrant) (string, error) {
	now := m.now()
	rec := &models.RefreshTokenRecord{
		Token:     token.NewRefreshTokenValue(),
		Grant:     grant,
		CreatedAt: now,
		ExpiresAt: now.Add(client.RefreshLifetime),
	}
	if err := m.refresh.Create(ctx, rec); err != nil {
		return "", err
	}
	return rec.Token, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
