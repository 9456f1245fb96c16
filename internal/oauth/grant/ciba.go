package grant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/audit"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/store"
	"authgate/internal/oauth/token"
	"authgate/internal/oauth/validation"
	"authgate/internal/platform/metrics"
)

// CIBAHandler serves token-endpoint polling for back-channel authentication
// requests. Poll semantics are shared with the device flow.
type CIBAHandler struct {
	requests store.BackChannelStore
	minter   minter
	audit    audit.Publisher
}

func NewCIBAHandler(
	requests store.BackChannelStore,
	issuer *token.Issuer,
	refresh store.RefreshTokenStore,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *CIBAHandler {
	return &CIBAHandler{
		requests: requests,
		minter:   minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
		audit:    auditor,
	}
}

func (h *CIBAHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantCIBA
}

func (h *CIBAHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	req := vc.Token
	if req.AuthReqID == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "auth_req_id is required")
	}

	rec, err := h.requests.Poll(ctx, req.AuthReqID, vc.Now)
	if err != nil {
		return nil, pollError(err)
	}
	if rec.ClientID != vc.Client.ClientID {
		return nil, models.NewError(models.ErrInvalidGrant, "auth_req_id was issued to another client")
	}

	resp, merr := h.minter.mint(ctx, vc.Client, *rec.Grant, models.GrantCIBA)
	if merr != nil {
		return nil, merr
	}
	h.audit.Publish(ctx, audit.Event{
		Type:     audit.EventTokenIssued,
		Subject:  rec.Grant.Session.Subject,
		ClientID: vc.Client.ClientID,
		Detail:   string(models.GrantCIBA),
		At:       vc.Now,
	})
	return resp, nil
}
