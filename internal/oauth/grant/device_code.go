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

// DeviceCodeHandler serves token-endpoint polling for the device flow. The
// store's Poll primitive owns the state machine; this handler translates its
// outcomes onto the wire.
type DeviceCodeHandler struct {
	devices store.DeviceStore
	minter  minter
	audit   audit.Publisher
}

func NewDeviceCodeHandler(
	devices store.DeviceStore,
	issuer *token.Issuer,
	refresh store.RefreshTokenStore,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *DeviceCodeHandler {
	return &DeviceCodeHandler{
		devices: devices,
		minter:  minter{issuer: issuer, refresh: refresh, metrics: m, log: log, now: time.Now},
		audit:   auditor,
	}
}

func (h *DeviceCodeHandler) CanHandle(gt models.GrantType) bool {
	return gt == models.GrantDeviceCode
}

func (h *DeviceCodeHandler) Authorize(ctx context.Context, vc *validation.Context) (*TokenResponse, *models.Error) {
	req := vc.Token
	if req.DeviceCode == "" {
		return nil, models.NewError(models.ErrInvalidRequest, "device_code is required")
	}

	rec, err := h.devices.Poll(ctx, req.DeviceCode, vc.Now)
	if err != nil {
		return nil, pollError(err)
	}
	if rec.ClientID != vc.Client.ClientID {
		return nil, models.NewError(models.ErrInvalidGrant, "device_code was issued to another client")
	}

	resp, merr := h.minter.mint(ctx, vc.Client, *rec.Grant, models.GrantDeviceCode)
	if merr != nil {
		return nil, merr
	}
	h.audit.Publish(ctx, audit.Event{
		Type:     audit.EventTokenIssued,
		Subject:  rec.Grant.Session.Subject,
		ClientID: vc.Client.ClientID,
		Detail:   string(models.GrantDeviceCode),
		At:       vc.Now,
	})
	return resp, nil
}

// pollError maps a poll failure onto its wire error, attaching Retry-After
// for slow_down responses.
func pollError(err error) *models.Error {
	code := models.PollErrorCode(err)
	out := models.NewError(code, err.Error())
	if code == models.ErrSlowDown {
		out.RetryAfterSeconds = 5
	}
	return out
}
