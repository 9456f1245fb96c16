package grant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// UserAuthenticator verifies resource-owner credentials. Implementations sit
// outside the engine (LDAP, a user database); a failed check returns an error
// that always surfaces as invalid_grant.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (subject string, err error)
}

// PasswordHandler implements the resource-owner password grant for the legacy
// integrations still registered for it.
type PasswordHandler struct {
	users  UserAuthenticator
	minter minter
}

func NewPasswordHandler(users UserAuthenticator, issuer *token.Issuer, refresh store.RefreshTokenStore, m *metrics.Metrics, log zerolog.Logger) *PasswordHandler {
	return &PasswordHandler{
		users:  users,
		minter: minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
	}
}

func (h *PasswordHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantPassword
}

func (h *PasswordHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	req := vc.Token
	if req.Username == "" || req.Password == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "username and password are required")
	}
	subject, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		// Credential failures and lookup failures are indistinguishable on the
		// wire so the endpoint cannot be used as a username oracle.
		return nil, models.NewError(models.ErrInvalidGrant, "resource owner authentication failed")
	}

	scopes := make([]string, 0, len(vc.Scopes))
	for _, s := range vc.Scopes {
		scopes = append(scopes, s.Name)
	}
	grant := models.AuthorizedGrant{
		Session: models.AuthSession{
			SessionID:          uuid.NewString(),
			Subject:            subject,
			AuthenticationTime: vc.Now,
			AMR:                []string{"pwd"},
		},
		Context: models.AuthorizationContext{
			ClientID:  vc.Client.ClientID,
			Scopes:    scopes,
			Resources: vc.Resources,
		},
		CreatedAt: vc.Now,
	}
	return h.minter.mint(ctx, vc.Client, grant, models.GrantPassword)
}
