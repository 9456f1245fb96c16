package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"authgate/internal/oauth/models"
	"authgate/internal/oauth/par"
)

// PARHandler serves the pushed authorization request endpoint.
type PARHandler struct {
	service *par.Service
}

func NewPARHandler(service *par.Service) *PARHandler {
	return &PARHandler{service: service}
}

func (h *PARHandler) Register(r chi.Router) {
	r.Post("/par", h.handlePush)
}

func (h *PARHandler) handlePush(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, r, models.NewError(models.ErrInvalidRequest, "malformed request"))
		return
	}
	req := models.ParseAuthorizationRequest(r.PostForm)
	resp, oerr := h.service.Push(r.Context(), req)
	if oerr != nil {
		writeOAuthError(w, r, oerr)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
