package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate/internal/audit"
	"authgate/internal/oauth/grant"
	"authgate/internal/oauth/models"
	"authgate/internal/oauth/token"
)

// TokenHandler serves the token endpoint plus introspection and revocation.
type TokenHandler struct {
	dispatcher   *grant.Dispatcher
	introspector *token.Introspector
	audit        audit.Publisher
}

func NewTokenHandler(dispatcher *grant.Dispatcher, introspector *token.Introspector, auditor audit.Publisher) *TokenHandler {
	return &TokenHandler{dispatcher: dispatcher, introspector: introspector, audit: auditor}
}

func (h *TokenHandler) Register(r chi.Router) {
	r.Post("/token", h.handleToken)
	r.Post("/introspect", h.handleIntrospect)
	r.Post("/revoke", h.handleRevoke)
}

func (h *TokenHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	req := models.ParseTokenRequest(r.PostForm)
	resp, oerr := h.dispatcher.Token(r.Context(), req)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TokenHandler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	raw := r.PostForm.Get("token")
	if raw == "" {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "token is required"))
		return
	}
	result, err := h.introspector.Introspect(r.Context(), raw)
	if err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrServerError, "introspection failed"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TokenHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	raw := r.PostForm.Get("token")
	if raw == "" {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "token is required"))
		return
	}
	if err := h.introspector.Revoke(r.Context(), raw); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrServerError, "revocation failed"))
		return
	}
	h.audit.Publish(r.Context(), audit.Event{Type: audit.EventTokenRevoked, At: time.Now()})
	// RFC 7009: the response body is empty on success.
	w.WriteHeader(http.StatusOK)
}
