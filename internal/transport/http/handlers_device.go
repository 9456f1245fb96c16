package httptransport

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authgate/internal/device"
	"authgate/internal/oauth/models"
	"authgate/internal/session"
)

// DeviceHandler serves the device authorization endpoint and the user-code
// verification endpoints the interaction UI calls.
type DeviceHandler struct {
	devices  *device.Service
	sessions *session.Service
}

func NewDeviceHandler(devices *device.Service, sessions *session.Service) *DeviceHandler {
	return &DeviceHandler{devices: devices, sessions: sessions}
}

func (h *DeviceHandler) Register(r chi.Router) {
	r.Post("/device_authorization", h.handleBegin)
	r.Post("/device/verify", h.handleVerify)
	r.Post("/device/approve", h.handleApprove)
	r.Post("/device/deny", h.handleDeny)
}

func (h *DeviceHandler) handleBegin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	input := models.DeviceAuthorizationInput{
		ClientID: r.PostForm.Get("client_id"),
		Scopes:   splitScopes(r.PostForm.Get("scope")),
	}
	resp, oerr := h.devices.Begin(r.Context(), input)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DeviceHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	rec, oerr := h.devices.Verify(r.Context(), r.PostForm.Get("user_code"), callerKey(r))
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_id": rec.ClientID,
		"scopes":    rec.Scopes,
	})
}

func (h *DeviceHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, true)
}

func (h *DeviceHandler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, false)
}

func (h *DeviceHandler) settle(w http.ResponseWriter, r *http.Request, approve bool) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	sess, oerr := h.requireSession(r)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	userCode := r.PostForm.Get("user_code")
	if approve {
		oerr = h.devices.Approve(r.Context(), userCode, sess)
	} else {
		oerr = h.devices.Deny(r.Context(), userCode, sess)
	}
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireSession resolves an authenticated session for interaction endpoints.
// The most recent live session the user agent holds wins.
func (h *DeviceHandler) requireSession(r *http.Request) (models.AuthSession, *models.Error) {
	available, err := h.sessions.Available(r.Context(), readSessionIDs(r))
	if err != nil {
		return models.AuthSession{}, models.NewError(models.ErrServerError, "session lookup failed")
	}
	if len(available) == 0 {
		return models.AuthSession{}, models.NewError(models.ErrLoginRequired, "an authenticated session is required")
	}
	return available[len(available)-1], nil
}

// callerKey identifies the verification caller for rate limiting. Sessions
// key by user agent identity; anonymous callers fall back to the remote host.
func callerKey(r *http.Request) string {
	if ids := readSessionIDs(r); len(ids) > 0 {
		return ids[len(ids)-1]
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
