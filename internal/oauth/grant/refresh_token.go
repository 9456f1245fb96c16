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

// RefreshTokenHandler redeems refresh tokens with rotation and replay
// detection. Presenting an already-rotated token proves the token leaked, so
// every live token for the subject is revoked.
type RefreshTokenHandler struct {
	refresh store.RefreshTokenStore
	issued  store.IssuedTokenStore
	minter  minter
	audit   audit.Publisher
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewRefreshTokenHandler(
	refresh store.RefreshTokenStore,
	issued store.IssuedTokenStore,
	issuer *token.Issuer,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RefreshTokenHandler {
	return &RefreshTokenHandler{
		refresh: refresh,
		issued:  issued,
		minter:  minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
		audit:   auditor,
		metrics: m,
		log:     log,
	}
}

func (h *RefreshTokenHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantRefreshToken
}

func (h *RefreshTokenHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	req := vc.Token
	if req.RefreshToken == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "refresh_token is required")
	}

	rec, err := h.refresh.Consume(ctx, req.RefreshToken, vc.Now)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) && rec != nil && rec.RotatedTo != "" {
			h.onReplay(ctx, rec)
		}
		return nil, models.NewError(models.ErrInvalidGrant, "refresh token is invalid, expired, or already used")
	}
	if rec.Grant.Context.ClientID != vc.Client.ClientID {
		return nil, models.NewError(models.ErrInvalidGrant, "refresh token was issued to another client")
	}

	grant := rec.Grant
	if len(req.Scopes) > 0 {
		narrowed, ok := narrowScopes(grant.Context.Scopes, req.Scopes)
		if !ok {
			return nil, models.NewError(models.ErrInvalidScope, "requested scope exceeds the original grant")
		}
		grant.Context.Scopes = narrowed
		for i, res := range grant.Context.Resources {
			grant.Context.Resources[i] = res.FilterScopes(narrowed)
		}
	}

	resp, merr := h.minter.mint(ctx, vc.Client, grant, models.GrantRefreshToken)
	if merr != nil {
		return nil, merr
	}

	if vc.Client.RotateRefresh {
		replacement, cerr := h.minter.createRefreshToken(ctx, vc.Client, grant)
		if cerr != nil {
			return nil, models.NewError(models.ErrServerError, "could not rotate refresh token")
		}
		if rerr := h.refresh.MarkRotated(ctx, rec.Token, replacement); rerr != nil {
			h.log.Error().Err(rerr).Msg("recording refresh rotation failed")
		}
		resp.RefreshToken = replacement
		h.metrics.IncTokenIssued("refresh_token")
	} else {
		// Non-rotating clients keep the same token. Consume marked it used, so
		// re-arm the record with its original expiry.
		rec.Used = false
		rec.UsedAt = nil
		if cerr := h.refresh.Create(ctx, rec); cerr != nil {
			return nil, models.NewError(models.ErrServerError, "could not retain refresh token")
		}
		resp.RefreshToken = rec.Token
	}

	h.audit.Publish(ctx, audit.Event{
		Type:      audit.EventTokenIssued,
		Subject:   grant.Session.Subject,
		ClientID:  vc.Client.ClientID,
		SessionID: grant.Session.SessionID,
		Detail:    string(models.GrantRefreshToken),
		At:        vc.Now,
	})
	return resp, nil
}

// onReplay handles a rotated token being presented again: the grant is
// treated as compromised and every live token for the subject is revoked,
// the rotated replacement chain included.
func (h *RefreshTokenHandler) onReplay(ctx context.Context, rec *models.RefreshTokenRecord) {
	subject := rec.Grant.Session.Subject
	revoked, err := h.issued.RevokeBySubject(ctx, subject)
	if err != nil {
		h.log.Error().Err(err).Str("subject", subject).Msg("subject-wide revocation failed")
	}
	refreshRevoked, err := h.refresh.RevokeBySubject(ctx, subject)
	if err != nil {
		h.log.Error().Err(err).Str("subject", subject).Msg("refresh family revocation failed")
	} else {
		h.log.Warn().Str("subject", subject).
			Int("revoked", revoked).
			Int("refresh_revoked", refreshRevoked).
			Msg("refresh token replay detected")
	}
	h.metrics.IncRefreshReuse()
	h.audit.Publish(ctx, audit.Event{
		Type:     audit.EventRefreshReuse,
		Subject:  subject,
		ClientID: rec.Grant.Context.ClientID,
		At:       time.Now(),
	})
}

// narrowScopes returns requested iff it is a subset of granted.
func narrowScopes(granted, requested []string) ([]string, bool) {
	for _, want := range requested {
		if !containsScope(granted, want) {
			return nil, false
		}
	}
	return requested, true
}
