package grant

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
	"authgate/pkg/platform/sentinel"
)

// AuthorizationCodeHandler redeems authorization codes. The code is removed
// from the store before any further checking, so a code that fails PKCE or
// redirect verification is burned rather than retryable.
type AuthorizationCodeHandler struct {
	grants store.GrantStore
	minter minter
	audit  audit.Publisher
}

func NewAuthorizationCodeHandler(
	grants store.GrantStore,
	issuer *token.Issuer,
	refresh store.RefreshTokenStore,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthorizationCodeHandler {
	return &AuthorizationCodeHandler{
		grants: grants,
		minter: minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
		audit:  auditor,
	}
}

func (h *AuthorizationCodeHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantAuthorizationCode
}

func (h *AuthorizationCodeHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	req := vc.Token
	if req.Code == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "code is required")
	}

	grant, err := h.grants.FetchAndRemove(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.NewError(models.ErrInvalidGrant, "authorization code is invalid, expired, or already used")
		}
		return nil, models.NewError(models.ErrServerError, "code lookup failed")
	}

	if grant.Context.ClientID != vc.Client.ClientID {
		return nil, models.NewError(models.ErrInvalidGrant, "authorization code was issued to another client")
	}
	if grant.Context.RedirectURI != "" && grant.Context.RedirectURI != req.RedirectURI {
		return nil, models.NewError(models.ErrInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if !validation.VerifyCodeVerifier(grant.Context.CodeChallenge, grant.Context.CodeChallengeMethod, req.CodeVerifier) {
		return nil, models.NewError(models.ErrInvalidGrant, "code_verifier verification failed")
	}

	resp, merr := h.minter.mint(ctx, vc.Client, *grant, models.GrantAuthorizationCode)
	if merr != nil {
		return nil, merr
	}
	h.audit.Publish(ctx, audit.Event{
		Type:      audit.EventTokenIssued,
		Subject:   grant.Session.Subject,
		ClientID:  vc.Client.ClientID,
		SessionID: grant.Session.SessionID,
		Detail:    string(models.GrantAuthorizationCode),
		At:        vc.Now,
	})
	return resp, nil
}
