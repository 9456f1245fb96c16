package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"authgate/internal/backchannel"
	"authgate/internal/oauth/models"
	"authgate/internal/session"
)

// BackChannelHandler serves the CIBA request endpoint and the settlement
// endpoints the user's authentication device calls.
type BackChannelHandler struct {
	requests *backchannel.Service
	sessions *session.Service
}

func NewBackChannelHandler(requests *backchannel.Service, sessions *session.Service) *BackChannelHandler {
	return &BackChannelHandler{requests: requests, sessions: sessions}
}

func (h *BackChannelHandler) Register(r chi.Router) {
	r.Post("/bc-authorize", h.handleBegin)
	r.Post("/bc-authorize/complete", h.handleComplete)
}

func (h *BackChannelHandler) handleBegin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	req := models.BackChannelAuthenticationRequest{
		ClientID:          r.PostForm.Get("client_id"),
		Scopes:            splitScopes(r.PostForm.Get("scope")),
		LoginHint:         r.PostForm.Get("login_hint"),
		LoginHintToken:    r.PostForm.Get("login_hint_token"),
		IDTokenHint:       r.PostForm.Get("id_token_hint"),
		BindingMessage:    r.PostForm.Get("binding_message"),
		ACRValues:         splitScopes(r.PostForm.Get("acr_values")),
		ClientNotifyToken: r.PostForm.Get("client_notification_token"),
	}
	if raw := r.PostForm.Get("requested_expiry"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			req.RequestedExpiry = &v
		}
	}
	resp, oerr := h.requests.Begin(r.Context(), req)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleComplete settles a pending request from the authentication device.
// The caller must hold a live session for the subject named in the request.
func (h *BackChannelHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	available, err := h.sessions.Available(r.Context(), readSessionIDs(r))
	if err != nil || len(available) == 0 {
		writeOAuthError(w, r, models.NewError(models.ErrLoginRequired, "an authenticated session is required"))
		return
	}
	sess := available[len(available)-1]

	authReqID := r.PostForm.Get("auth_req_id")
	var oerr *models.Error
	switch r.PostForm.Get("decision") {
	case "approve":
		oerr = h.requests.Authenticate(r.Context(), authReqID, sess)
	case "deny":
		oerr = h.requests.Deny(r.Context(), authReqID, sess)
	default:
		oerr = models.NewError(models.ErrInvalidRequest, "decision must be approve or deny")
	}
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
