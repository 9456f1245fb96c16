package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"authgate/internal/endsession"
	"authgate/internal/oauth/models"
)

// EndSessionHandler serves RP-initiated logout.
type EndSessionHandler struct {
	processor *endsession.Processor
}

func NewEndSessionHandler(processor *endsession.Processor) *EndSessionHandler {
	return &EndSessionHandler{processor: processor}
}

func (h *EndSessionHandler) Register(r chi.Router) {
	r.Get("/endsession", h.handleEndSession)
	r.Post("/endsession", h.handleEndSession)
}

func (h *EndSessionHandler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	req := models.EndSessionRequest{
		IDTokenHint:           r.Form.Get("id_token_hint"),
		ClientID:              r.Form.Get("client_id"),
		PostLogoutRedirectURI: r.Form.Get("post_logout_redirect_uri"),
		State:                 r.Form.Get("state"),
	}
	result, oerr := h.processor.EndSession(r.Context(), req, readSessionIDs(r))
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	clearSessionCookie(w)
	if result.RedirectURI != "" {
		http.Redirect(w, r, result.RedirectURI, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_out":       true,
		"sessions_ended":   result.TerminatedCount,
		"affected_clients": result.AffectedClients,
	})
}
