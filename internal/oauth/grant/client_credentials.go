package grant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// ClientCredentialsHandler mints machine-to-machine tokens. There is no end
// user: the subject is the client itself and no refresh token is issued.
type ClientCredentialsHandler struct {
	minter minter
}

func NewClientCredentialsHandler(issuer *token.Issuer, refresh store.RefreshTokenStore, m *metrics.Metrics, log zerolog.Logger) *ClientCredentialsHandler {
	return &ClientCredentialsHandler{
		minter: minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
	}
}

func (h *ClientCredentialsHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantClientCredentials
}

func (h *ClientCredentialsHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	scopes := make([]string, 0, len(vc.Scopes))
	for _, s := range vc.Scopes {
		scopes = append(scopes, s.Name)
	}
	grant := models.AuthorizedGrant{
		Session: models.AuthSession{
			SessionID:          "client:" + vc.Client.ClientID,
			Subject:            vc.Client.ClientID,
			AuthenticationTime: vc.Now,
		},
		Context: models.AuthorizationContext{
			ClientID:  vc.Client.ClientID,
			Scopes:    scopes,
			Resources: vc.Resources,
		},
		CreatedAt: vc.Now,
	}
	return h.minter.mint(ctx, vc.Client, grant, models.GrantClientCredentials)
}
